package rules

import (
	"fmt"

	"github.com/dshills/modelcritic/internal/kind"
	"github.com/dshills/modelcritic/internal/profile"
)

// ProfileRule turns a profile into a specialized rule. Absence of an
// expected member is a finding, never an error.
func ProfileRule(p *profile.Profile) Rule {
	return Rule{
		ID: RuleSpecialized,
		Check: func(d *kind.Descriptor, opts Options, acc *Accumulator) {
			before := len(acc.findings)
			for _, f := range p.RequiredFields {
				if !d.HasField(f) {
					acc.Warning(fmt.Sprintf("%s requires field %s", p.Name, f), "")
				}
			}
			for _, prop := range p.RequiredProperties {
				if !d.HasMethod(prop) {
					acc.Warning(fmt.Sprintf("%s requires computed property %s", p.Name, prop), "")
				}
			}
			for _, m := range p.RequiredMethods {
				if !d.HasMethod(m) {
					acc.Warning(fmt.Sprintf("%s requires method %s", p.Name, m), "")
				}
			}
			if opts.ShowOK && len(acc.findings) == before {
				acc.Notice(fmt.Sprintf("all %s checks passed", p.Name))
			}
		},
	}
}
