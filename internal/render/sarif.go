package render

import (
	"bytes"
	"fmt"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/dshills/modelcritic/internal/schema"
)

const informationURI = "https://github.com/dshills/modelcritic"

type sarifRenderer struct{}

func (r *sarifRenderer) Render(result *schema.AuditResult) ([]byte, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(result.Tool, informationURI)
	for _, k := range result.Kinds {
		for _, f := range k.Findings() {
			rule := run.AddRule(f.Rule).
				WithDescription(f.Rule + " conformance rule")

			qualified := k.Kind
			if k.Namespace != "" {
				qualified = k.Namespace + "." + k.Kind
			}
			logicalKind := "type"
			location := &sarif.Location{
				LogicalLocations: []*sarif.LogicalLocation{{
					Name:               &k.Kind,
					FullyQualifiedName: &qualified,
					Kind:               &logicalKind,
				}},
			}
			if k.Source != "" {
				location.WithPhysicalLocation(
					sarif.NewPhysicalLocation().
						WithArtifactLocation(sarif.NewArtifactLocation().WithUri(k.Source)),
				)
			}

			res := sarif.NewRuleResult(rule.ID).
				WithMessage(sarif.NewTextMessage(f.Message)).
				WithLevel(toSarifLevel(f.Severity)).
				WithLocations([]*sarif.Location{location})
			res.PropertyBag = *sarif.NewPropertyBag()
			res.Properties["severity"] = string(f.Severity)
			if f.Fix != "" {
				res.Properties["fix"] = f.Fix
			}
			run.AddResult(res)
		}
	}
	report.AddRun(run)

	var buf bytes.Buffer
	if err := report.PrettyWrite(&buf); err != nil {
		return nil, fmt.Errorf("rendering sarif: %w", err)
	}
	return buf.Bytes(), nil
}

func toSarifLevel(s schema.Severity) string {
	switch s {
	case schema.SeverityCritical:
		return "error"
	case schema.SeverityWarning:
		return "warning"
	case schema.SeverityInfo:
		return "note"
	default:
		return "none"
	}
}
