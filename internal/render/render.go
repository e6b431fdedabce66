package render

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/modelcritic/internal/schema"
)

// Renderer formats an AuditResult into bytes for export.
type Renderer interface {
	Render(result *schema.AuditResult) ([]byte, error)
}

// Formats lists the supported export formats.
var Formats = []string{"json", "yaml", "sarif", "md"}

// NewRenderer returns a Renderer for the given format string.
// Supported formats: "json" (default), "yaml", "sarif", "md".
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "json", "":
		return &jsonRenderer{}, nil
	case "yaml", "yml":
		return &yamlRenderer{}, nil
	case "sarif":
		return &sarifRenderer{}, nil
	case "md", "markdown":
		return &markdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q: supported formats are %s", format, strings.Join(Formats, ", "))
	}
}

// FormatFromPath infers the export format from a file extension. Unknown
// extensions fall back to json.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".sarif":
		return "sarif"
	case ".md", ".markdown":
		return "md"
	}
	return "json"
}

// ForExport returns a shallow copy of result with INFO lists dropped unless
// the run was verbose. Summary counts are left intact.
func ForExport(result *schema.AuditResult) *schema.AuditResult {
	out := *result
	out.Kinds = make([]schema.KindResult, len(result.Kinds))
	for i, k := range result.Kinds {
		if !result.Verbose {
			k.Info = nil
		}
		out.Kinds[i] = k
	}
	return &out
}
