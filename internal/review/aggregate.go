package review

import (
	"time"

	"github.com/dshills/modelcritic/internal/schema"
)

// Aggregator collects per-kind findings in the order kinds were checked.
// It is not safe for concurrent use.
type Aggregator struct {
	kinds []schema.KindResult
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Record stores the findings of one kind. Findings are split by severity
// preserving rule-application order.
func (a *Aggregator) Record(name, namespace, source string, findings []schema.Finding, notices []string) {
	kr := schema.KindResult{
		Kind:      name,
		Namespace: namespace,
		Source:    source,
		Critical:  []schema.Finding{},
		Warning:   []schema.Finding{},
		Info:      []schema.Finding{},
		Notices:   append([]string(nil), notices...),
	}
	for _, f := range findings {
		switch f.Severity {
		case schema.SeverityCritical:
			kr.Critical = append(kr.Critical, f)
		case schema.SeverityWarning:
			kr.Warning = append(kr.Warning, f)
		default:
			kr.Info = append(kr.Info, f)
		}
	}
	kr.Conforming = Conforming(findings)
	a.kinds = append(a.kinds, kr)
}

// Len returns the number of recorded kinds.
func (a *Aggregator) Len() int { return len(a.kinds) }

// Meta carries run-level fields copied into the result.
type Meta struct {
	Tool        string
	Version     string
	GeneratedAt time.Time
	Filters     schema.Filters
	Verbose     bool
}

// Summarize builds the AuditResult for everything recorded so far.
func (a *Aggregator) Summarize(meta Meta) *schema.AuditResult {
	kinds := make([]schema.KindResult, len(a.kinds))
	copy(kinds, a.kinds)

	sum := schema.Summary{
		KindsChecked:  len(kinds),
		NonConforming: []schema.NonConforming{},
	}
	for _, k := range kinds {
		sum.CriticalCount += len(k.Critical)
		sum.WarningCount += len(k.Warning)
		sum.InfoCount += len(k.Info)
		if k.Conforming {
			sum.Conforming++
			continue
		}
		sum.NonConforming = append(sum.NonConforming, schema.NonConforming{
			Kind:      k.Kind,
			Namespace: k.Namespace,
			Critical:  len(k.Critical),
			Warning:   len(k.Warning),
		})
	}

	return &schema.AuditResult{
		Tool:        meta.Tool,
		Version:     meta.Version,
		GeneratedAt: meta.GeneratedAt,
		Filters:     meta.Filters,
		Verbose:     meta.Verbose,
		Summary:     sum,
		Kinds:       kinds,
	}
}

// Conforming reports whether findings hold no CRITICAL and no WARNING.
// INFO findings never affect conformance.
func Conforming(findings []schema.Finding) bool {
	critical, warning, _ := Counts(findings)
	return critical == 0 && warning == 0
}

// Counts returns the critical, warning and info counts of findings.
func Counts(findings []schema.Finding) (critical, warning, info int) {
	for _, f := range findings {
		switch f.Severity {
		case schema.SeverityCritical:
			critical++
		case schema.SeverityWarning:
			warning++
		case schema.SeverityInfo:
			info++
		}
	}
	return
}

// FilterBySeverity returns only findings at or above threshold.
func FilterBySeverity(findings []schema.Finding, threshold schema.Severity) []schema.Finding {
	if threshold == schema.SeverityInfo {
		return findings
	}
	out := make([]schema.Finding, 0, len(findings))
	for _, f := range findings {
		if SeverityOrdinal(f.Severity) >= SeverityOrdinal(threshold) {
			out = append(out, f)
		}
	}
	return out
}

// SeverityOrdinal orders severities INFO(0) < WARNING(1) < CRITICAL(2).
// Returns -1 for an unrecognised severity.
func SeverityOrdinal(s schema.Severity) int {
	switch s {
	case schema.SeverityInfo:
		return 0
	case schema.SeverityWarning:
		return 1
	case schema.SeverityCritical:
		return 2
	}
	return -1
}
