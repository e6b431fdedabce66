package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/modelcritic/internal/schema"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse decodes an exported audit document and validates its structure.
// format is "json" or "yaml"; an empty format is inferred from the content.
func Parse(data []byte, format string) (*schema.AuditResult, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if format == "" {
		format = sniff(data)
	}

	var result schema.AuditResult
	switch format {
	case "json":
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("JSON parse failed: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("YAML parse failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported document format %q: expected json or yaml", format)
	}

	if err := validateResult(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FormatFromPath maps a file extension to a Parse format ("" when unknown).
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	return ""
}

func sniff(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return "json"
	}
	return "yaml"
}

func validateResult(r *schema.AuditResult) error {
	if r.Tool == "" {
		return fmt.Errorf("tool is required")
	}
	if r.Summary.KindsChecked != len(r.Kinds) {
		return fmt.Errorf("summary.kinds_checked %d does not match %d kind entries", r.Summary.KindsChecked, len(r.Kinds))
	}
	filtered := false
	if r.SeverityThreshold != "" {
		if err := validateSeverity(r.SeverityThreshold, "severity_threshold"); err != nil {
			return err
		}
		filtered = r.SeverityThreshold != schema.SeverityInfo
	}
	for i, k := range r.Kinds {
		if err := validateKind(k, i, filtered); err != nil {
			return err
		}
	}
	return nil
}

// validateKind checks one kind entry. When filtered, lists below the run's
// severity threshold were dropped and conformance cannot be recomputed.
func validateKind(k schema.KindResult, idx int, filtered bool) error {
	prefix := fmt.Sprintf("kinds[%d]", idx)
	if k.Kind == "" {
		return fmt.Errorf("%s: kind name is required", prefix)
	}
	groups := []struct {
		name     string
		want     schema.Severity
		findings []schema.Finding
	}{
		{"critical", schema.SeverityCritical, k.Critical},
		{"warning", schema.SeverityWarning, k.Warning},
		{"info", schema.SeverityInfo, k.Info},
	}
	for _, g := range groups {
		for j, f := range g.findings {
			p := fmt.Sprintf("%s.%s[%d]", prefix, g.name, j)
			if err := validateSeverity(f.Severity, p); err != nil {
				return err
			}
			if f.Severity != g.want {
				return fmt.Errorf("%s: severity %s listed under %s", p, f.Severity, g.name)
			}
			if f.Message == "" {
				return fmt.Errorf("%s: message is required", p)
			}
		}
	}
	conforming := len(k.Critical) == 0 && len(k.Warning) == 0
	if !filtered && k.Conforming != conforming {
		return fmt.Errorf("%s: conforming=%t contradicts %d critical / %d warning findings",
			prefix, k.Conforming, len(k.Critical), len(k.Warning))
	}
	return nil
}

func validateSeverity(s schema.Severity, prefix string) error {
	if schema.IsValidSeverity(s) {
		return nil
	}
	return fmt.Errorf("%s: invalid severity %q (must be INFO, WARNING, or CRITICAL)", prefix, s)
}
