package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/modelcritic/internal/schema"
)

// document is the exported shape of an AuditResult. Every kind of a verbose
// run carries an info list, empty or not; quiet runs carry none.
type document struct {
	Tool              string          `json:"tool" yaml:"tool"`
	Version           string          `json:"version" yaml:"version"`
	GeneratedAt       time.Time       `json:"generated_at" yaml:"generated_at"`
	Filters           schema.Filters  `json:"filters" yaml:"filters"`
	Verbose           bool            `json:"verbose" yaml:"verbose"`
	SeverityThreshold schema.Severity `json:"severity_threshold,omitempty" yaml:"severity_threshold,omitempty"`
	Summary           schema.Summary  `json:"summary" yaml:"summary"`
	Kinds             []any           `json:"kinds" yaml:"kinds"`
}

type quietKind struct {
	Kind       string           `json:"kind" yaml:"kind"`
	Namespace  string           `json:"namespace" yaml:"namespace"`
	Source     string           `json:"source,omitempty" yaml:"source,omitempty"`
	Conforming bool             `json:"conforming" yaml:"conforming"`
	Critical   []schema.Finding `json:"critical" yaml:"critical"`
	Warning    []schema.Finding `json:"warning" yaml:"warning"`
}

type verboseKind struct {
	Kind       string           `json:"kind" yaml:"kind"`
	Namespace  string           `json:"namespace" yaml:"namespace"`
	Source     string           `json:"source,omitempty" yaml:"source,omitempty"`
	Conforming bool             `json:"conforming" yaml:"conforming"`
	Critical   []schema.Finding `json:"critical" yaml:"critical"`
	Warning    []schema.Finding `json:"warning" yaml:"warning"`
	Info       []schema.Finding `json:"info" yaml:"info"`
}

func newDocument(result *schema.AuditResult) document {
	doc := document{
		Tool:              result.Tool,
		Version:           result.Version,
		GeneratedAt:       result.GeneratedAt,
		Filters:           result.Filters,
		Verbose:           result.Verbose,
		SeverityThreshold: result.SeverityThreshold,
		Summary:           result.Summary,
		Kinds:             make([]any, 0, len(result.Kinds)),
	}
	for _, k := range result.Kinds {
		critical, warning := nonNil(k.Critical), nonNil(k.Warning)
		if !result.Verbose {
			doc.Kinds = append(doc.Kinds, quietKind{k.Kind, k.Namespace, k.Source, k.Conforming, critical, warning})
			continue
		}
		doc.Kinds = append(doc.Kinds, verboseKind{k.Kind, k.Namespace, k.Source, k.Conforming, critical, warning, nonNil(k.Info)})
	}
	if doc.Summary.NonConforming == nil {
		doc.Summary.NonConforming = []schema.NonConforming{}
	}
	return doc
}

func nonNil(f []schema.Finding) []schema.Finding {
	if f == nil {
		return []schema.Finding{}
	}
	return f
}

type jsonRenderer struct{}

func (r *jsonRenderer) Render(result *schema.AuditResult) ([]byte, error) {
	out, err := json.MarshalIndent(newDocument(result), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

type yamlRenderer struct{}

func (r *yamlRenderer) Render(result *schema.AuditResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(result)); err != nil {
		return nil, fmt.Errorf("rendering yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("rendering yaml: %w", err)
	}
	return buf.Bytes(), nil
}
