package schema

import "time"

// AuditResult is the top-level output of one audit run. SeverityThreshold is
// the lowest severity kept in Kinds; Summary counts and per-kind Conforming
// always reflect every finding.
type AuditResult struct {
	Tool              string       `json:"tool" yaml:"tool"`
	Version           string       `json:"version" yaml:"version"`
	GeneratedAt       time.Time    `json:"generated_at" yaml:"generated_at"`
	Filters           Filters      `json:"filters" yaml:"filters"`
	Verbose           bool         `json:"verbose" yaml:"verbose"`
	SeverityThreshold Severity     `json:"severity_threshold,omitempty" yaml:"severity_threshold,omitempty"`
	Summary           Summary      `json:"summary" yaml:"summary"`
	Kinds             []KindResult `json:"kinds" yaml:"kinds"`
}

// Filters captures the registry filters used for this run.
type Filters struct {
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Kind      string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Summary holds run-level counts.
// Counts always reflect every finding, including INFO findings hidden from
// non-verbose output.
type Summary struct {
	KindsChecked  int             `json:"kinds_checked" yaml:"kinds_checked"`
	Conforming    int             `json:"conforming" yaml:"conforming"`
	CriticalCount int             `json:"critical_count" yaml:"critical_count"`
	WarningCount  int             `json:"warning_count" yaml:"warning_count"`
	InfoCount     int             `json:"info_count" yaml:"info_count"`
	NonConforming []NonConforming `json:"non_conforming" yaml:"non_conforming"`
}

// NonConforming names a kind with at least one CRITICAL or WARNING finding.
type NonConforming struct {
	Kind      string `json:"kind" yaml:"kind"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Critical  int    `json:"critical" yaml:"critical"`
	Warning   int    `json:"warning" yaml:"warning"`
}

// KindResult groups the findings for one audited kind.
type KindResult struct {
	Kind       string    `json:"kind" yaml:"kind"`
	Namespace  string    `json:"namespace" yaml:"namespace"`
	Source     string    `json:"source,omitempty" yaml:"source,omitempty"`
	Conforming bool      `json:"conforming" yaml:"conforming"`
	Critical   []Finding `json:"critical" yaml:"critical"`
	Warning    []Finding `json:"warning" yaml:"warning"`
	Info       []Finding `json:"info,omitempty" yaml:"info,omitempty"`
	// Notices are cosmetic "checks passed" messages; they never affect conformance.
	Notices []string `json:"-" yaml:"-"`
}

// Findings returns every finding of the kind in severity order.
func (k KindResult) Findings() []Finding {
	out := make([]Finding, 0, len(k.Critical)+len(k.Warning)+len(k.Info))
	out = append(out, k.Critical...)
	out = append(out, k.Warning...)
	return append(out, k.Info...)
}

// Severity levels for findings.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// IsValidSeverity reports whether s is one of the three defined levels.
func IsValidSeverity(s Severity) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Finding is one audit observation. Findings are values: once built they
// are copied, never mutated.
type Finding struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Rule     string   `json:"rule" yaml:"rule"`
	Kind     string   `json:"kind" yaml:"kind"`
	Message  string   `json:"message" yaml:"message"`
	Fix      string   `json:"fix,omitempty" yaml:"fix,omitempty"`
}
