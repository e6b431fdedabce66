package rules

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/modelcritic/internal/kind"
	"github.com/dshills/modelcritic/internal/profile"
	"github.com/dshills/modelcritic/internal/schema"
)

// Options are per-run switches visible to every rule.
type Options struct {
	// ShowOK makes specialized rules leave a notice when nothing is wrong.
	ShowOK bool
}

// CheckFunc inspects one descriptor and reports through acc.
// It must not mutate d and must not retain acc.
type CheckFunc func(d *kind.Descriptor, opts Options, acc *Accumulator)

// Rule is a named check.
type Rule struct {
	ID    string
	Check CheckFunc
}

// Engine applies the generic rules to every kind, then the specialized rule
// registered for the kind's exact name, if any.
type Engine struct {
	generic     []Rule
	specialized map[string]Rule
	logger      hclog.Logger
	invocations int
}

// NewEngine returns an engine loaded with the ten generic rules and one
// specialized rule per built-in profile.
func NewEngine(logger hclog.Logger) *Engine {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	e := &Engine{
		specialized: make(map[string]Rule),
		logger:      logger,
	}
	for _, r := range GenericRules() {
		e.Register(r)
	}
	for _, name := range profile.Names() {
		p, _ := profile.Lookup(name)
		e.RegisterSpecialized(name, ProfileRule(p))
	}
	return e
}

// Register appends a generic rule; rules run in registration order.
func (e *Engine) Register(r Rule) {
	e.generic = append(e.generic, r)
}

// RegisterSpecialized binds a rule to an exact kind name, replacing any
// previous binding.
func (e *Engine) RegisterSpecialized(kindName string, r Rule) {
	e.specialized[kindName] = r
}

// Invocations returns how many rule invocations the engine has performed.
func (e *Engine) Invocations() int { return e.invocations }

// Check runs every applicable rule against d and returns the findings in
// rule-application order plus any show-ok notices.
func (e *Engine) Check(d *kind.Descriptor, opts Options) ([]schema.Finding, []string) {
	acc := newAccumulator(d.Name)
	for _, r := range e.generic {
		e.run(r, d, opts, acc)
	}
	if r, ok := e.specialized[d.Name]; ok {
		e.run(r, d, opts, acc)
	}
	e.logger.Debug("kind checked", "kind", d.QualifiedName(), "findings", len(acc.findings))
	return acc.Findings(), acc.Notices()
}

// run isolates one rule: each rule sees its own copy of the descriptor, and
// a panic is downgraded to an INFO finding so the remaining rules still run.
func (e *Engine) run(r Rule, d *kind.Descriptor, opts Options, acc *Accumulator) {
	e.invocations++
	acc.rule = r.ID
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Warn("rule failed", "rule", r.ID, "kind", d.QualifiedName(), "error", rec)
			acc.Info(fmt.Sprintf("could not verify %s: %v", r.ID, rec), "")
		}
	}()
	r.Check(d.Clone(), opts, acc)
}
