package rules

import "github.com/dshills/modelcritic/internal/schema"

// Accumulator collects the findings of one kind across all rules.
type Accumulator struct {
	kind     string
	rule     string
	findings []schema.Finding
	notices  []string
}

func newAccumulator(kindName string) *Accumulator {
	return &Accumulator{kind: kindName}
}

// Critical records a CRITICAL finding for the running rule.
func (a *Accumulator) Critical(msg, fix string) { a.add(schema.SeverityCritical, msg, fix) }

// Warning records a WARNING finding for the running rule.
func (a *Accumulator) Warning(msg, fix string) { a.add(schema.SeverityWarning, msg, fix) }

// Info records an INFO finding for the running rule.
func (a *Accumulator) Info(msg, fix string) { a.add(schema.SeverityInfo, msg, fix) }

// Notice records a cosmetic "all good" message.
func (a *Accumulator) Notice(msg string) { a.notices = append(a.notices, msg) }

func (a *Accumulator) add(sev schema.Severity, msg, fix string) {
	a.findings = append(a.findings, schema.Finding{
		Severity: sev,
		Rule:     a.rule,
		Kind:     a.kind,
		Message:  msg,
		Fix:      fix,
	})
}

// Findings returns a copy of the recorded findings.
func (a *Accumulator) Findings() []schema.Finding {
	return append([]schema.Finding(nil), a.findings...)
}

// Notices returns a copy of the recorded notices.
func (a *Accumulator) Notices() []string {
	return append([]string(nil), a.notices...)
}
