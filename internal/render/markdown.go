package render

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/dshills/modelcritic/internal/schema"
)

type markdownRenderer struct{}

var mdTemplate = template.Must(template.New("report").Parse(`# Model Conformance Report

**Kinds checked:** {{ .Summary.KindsChecked }} | **Conforming:** {{ .Summary.Conforming }}
**Critical:** {{ .Summary.CriticalCount }} | **Warning:** {{ .Summary.WarningCount }} | **Info:** {{ .Summary.InfoCount }}
{{- with .Filters }}{{ if or .Namespace .Kind }}
**Filters:**{{ if .Namespace }} namespace={{ .Namespace }}{{ end }}{{ if .Kind }} kind={{ .Kind }}{{ end }}
{{- end }}{{ end }}
{{ if .Summary.NonConforming }}
## Non-conforming kinds

| Kind | Namespace | Critical | Warning |
|---|---|---|---|
{{ range .Summary.NonConforming }}| {{ .Kind }} | {{ .Namespace }} | {{ .Critical }} | {{ .Warning }} |
{{ end }}{{ end }}
{{- range .Kinds }}
---

## {{ if .Namespace }}{{ .Namespace }}.{{ end }}{{ .Kind }}{{ if .Conforming }} ✓{{ end }}
{{ if .Source }}
*Source:* ` + "`{{ .Source }}`" + `
{{ end }}{{ range .Critical }}
- **CRITICAL** [{{ .Rule }}] {{ .Message }}{{ if .Fix }}
  *Fix:* {{ .Fix }}{{ end }}{{ end }}{{ range .Warning }}
- **WARNING** [{{ .Rule }}] {{ .Message }}{{ if .Fix }}
  *Fix:* {{ .Fix }}{{ end }}{{ end }}{{ range .Info }}
- INFO [{{ .Rule }}] {{ .Message }}{{ end }}
{{ end }}
---
*{{ .Tool }} {{ .Version }} | generated {{ .GeneratedAt.Format "2006-01-02T15:04:05Z07:00" }}*
`))

func (r *markdownRenderer) Render(result *schema.AuditResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := mdTemplate.Execute(&buf, result); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}
