// Package drift compares two exported audit documents.
package drift

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dshills/modelcritic/internal/schema"
	"github.com/dshills/modelcritic/internal/schema/validate"
)

// Change statuses for a kind present in one or both runs.
const (
	StatusAdded   = "added"
	StatusRemoved = "removed"
	StatusChanged = "changed"
)

// KindChange describes how one kind's findings moved between runs.
type KindChange struct {
	Kind      string
	Namespace string
	Status    string
	// Introduced are findings present only in the new run.
	Introduced []schema.Finding
	// Resolved are findings present only in the old run.
	Resolved []schema.Finding
	// WasConforming and IsConforming are meaningful for StatusChanged.
	WasConforming bool
	IsConforming  bool
}

// Report is the outcome of Compare.
type Report struct {
	Identical bool
	Changes   []KindChange
	// Patch is a diff-match-patch text patch from the old canonical
	// document to the new one; empty when identical.
	Patch string
}

// LoadFile reads and validates an exported audit document.
func LoadFile(path string) (*schema.AuditResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	r, err := validate.Parse(data, validate.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Compare diffs older against newer. The run timestamp is ignored.
func Compare(older, newer *schema.AuditResult) (*Report, error) {
	before, err := canonical(older)
	if err != nil {
		return nil, err
	}
	after, err := canonical(newer)
	if err != nil {
		return nil, err
	}
	if before == after {
		return &Report{Identical: true}, nil
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	patchText := dmp.PatchToText(dmp.PatchMake(before, diffs))

	return &Report{
		Changes: kindChanges(older, newer),
		Patch:   patchText,
	}, nil
}

// canonical renders r as indented JSON with the timestamp blanked and line
// endings normalized.
func canonical(r *schema.AuditResult) (string, error) {
	c := *r
	c.GeneratedAt = time.Time{}
	data, err := json.MarshalIndent(&c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("canonical form: %w", err)
	}
	return normalize(string(data)), nil
}

// normalize trims trailing whitespace from each line and converts CRLF to LF.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

func kindKey(k schema.KindResult) string { return k.Namespace + "." + k.Kind }

func findingKey(f schema.Finding) string {
	return string(f.Severity) + "|" + f.Rule + "|" + f.Message
}

func kindChanges(older, newer *schema.AuditResult) []KindChange {
	oldKinds := map[string]schema.KindResult{}
	for _, k := range older.Kinds {
		oldKinds[kindKey(k)] = k
	}
	seen := map[string]bool{}
	var out []KindChange

	for _, k := range newer.Kinds {
		key := kindKey(k)
		seen[key] = true
		prev, ok := oldKinds[key]
		if !ok {
			out = append(out, KindChange{
				Kind: k.Kind, Namespace: k.Namespace, Status: StatusAdded,
				Introduced: k.Findings(), IsConforming: k.Conforming,
			})
			continue
		}
		introduced, resolved := diffFindings(prev.Findings(), k.Findings())
		if len(introduced) == 0 && len(resolved) == 0 && prev.Conforming == k.Conforming {
			continue
		}
		out = append(out, KindChange{
			Kind: k.Kind, Namespace: k.Namespace, Status: StatusChanged,
			Introduced: introduced, Resolved: resolved,
			WasConforming: prev.Conforming, IsConforming: k.Conforming,
		})
	}
	for _, k := range older.Kinds {
		if seen[kindKey(k)] {
			continue
		}
		out = append(out, KindChange{
			Kind: k.Kind, Namespace: k.Namespace, Status: StatusRemoved,
			Resolved: k.Findings(), WasConforming: k.Conforming,
		})
	}
	return out
}

// diffFindings compares two finding lists as multisets keyed by severity,
// rule and message.
func diffFindings(before, after []schema.Finding) (introduced, resolved []schema.Finding) {
	count := map[string]int{}
	for _, f := range before {
		count[findingKey(f)]++
	}
	for _, f := range after {
		k := findingKey(f)
		if count[k] > 0 {
			count[k]--
			continue
		}
		introduced = append(introduced, f)
	}
	remaining := map[string]int{}
	for _, f := range after {
		remaining[findingKey(f)]++
	}
	for _, f := range before {
		k := findingKey(f)
		if remaining[k] > 0 {
			remaining[k]--
			continue
		}
		resolved = append(resolved, f)
	}
	return introduced, resolved
}

// Summary renders the per-kind changes as short text lines.
func (r *Report) Summary() string {
	if r.Identical {
		return "no drift"
	}
	var sb strings.Builder
	for _, c := range r.Changes {
		name := c.Kind
		if c.Namespace != "" {
			name = c.Namespace + "." + c.Kind
		}
		switch c.Status {
		case StatusAdded:
			fmt.Fprintf(&sb, "+ %s (new kind, %d findings)\n", name, len(c.Introduced))
		case StatusRemoved:
			fmt.Fprintf(&sb, "- %s (kind no longer audited)\n", name)
		default:
			fmt.Fprintf(&sb, "~ %s: %d introduced, %d resolved", name, len(c.Introduced), len(c.Resolved))
			if c.WasConforming != c.IsConforming {
				fmt.Fprintf(&sb, " (conforming %t -> %t)", c.WasConforming, c.IsConforming)
			}
			sb.WriteString("\n")
		}
		for _, f := range c.Introduced {
			fmt.Fprintf(&sb, "    + %s [%s] %s\n", f.Severity, f.Rule, f.Message)
		}
		for _, f := range c.Resolved {
			fmt.Fprintf(&sb, "    - %s [%s] %s\n", f.Severity, f.Rule, f.Message)
		}
	}
	if len(r.Changes) == 0 {
		sb.WriteString("run metadata changed; no kind-level drift\n")
	}
	return sb.String()
}
