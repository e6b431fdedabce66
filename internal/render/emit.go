package render

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/dshills/modelcritic/internal/schema"
)

// EmitOptions controls the human-readable stream.
type EmitOptions struct {
	Verbose bool
	Color   bool
}

// ColorEnabled reports whether w is a terminal that should get color.
// NO_COLOR is honoured by fatih/color itself.
func ColorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type palette struct {
	header, critical, warning, info, ok, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		header:   color.New(color.Bold),
		critical: color.New(color.FgRed, color.Bold),
		warning:  color.New(color.FgYellow),
		info:     color.New(color.FgCyan),
		ok:       color.New(color.FgGreen),
		dim:      color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.header, p.critical, p.warning, p.info, p.ok, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Emit writes the per-kind findings followed by the run summary line. INFO
// findings are shown only when verbose; the summary is always written.
func Emit(w io.Writer, result *schema.AuditResult, opts EmitOptions) error {
	p := newPalette(opts.Color)
	ew := &errWriter{w: w}

	for _, k := range result.Kinds {
		name := k.Kind
		if k.Namespace != "" {
			name = k.Namespace + "." + k.Kind
		}
		ew.printf("%s", p.header.Sprintf("== %s", name))
		if k.Source != "" {
			ew.printf(" %s", p.dim.Sprintf("(%s)", k.Source))
		}
		ew.printf("\n")

		emitGroup(ew, p.critical, "CRITICAL", k.Critical)
		emitGroup(ew, p.warning, "WARNING ", k.Warning)
		if opts.Verbose {
			emitGroup(ew, p.info, "INFO    ", k.Info)
		}
		for _, n := range k.Notices {
			ew.printf("  %s %s\n", p.ok.Sprint("OK      "), n)
		}
		if k.Conforming && len(k.Notices) == 0 {
			ew.printf("  %s conforming\n", p.ok.Sprint("OK      "))
		}
	}

	ew.printf("\n%s\n", SummaryLine(result.Summary))
	return ew.err
}

func emitGroup(ew *errWriter, c *color.Color, label string, findings []schema.Finding) {
	for _, f := range findings {
		ew.printf("  %s [%s] %s\n", c.Sprint(label), f.Rule, f.Message)
		if f.Fix != "" {
			ew.printf("           fix: %s\n", f.Fix)
		}
	}
}

// SummaryLine renders the trailing one-line run summary.
func SummaryLine(s schema.Summary) string {
	return fmt.Sprintf("%d kinds checked: %d conforming, %d non-conforming (%d critical, %d warning, %d info)",
		s.KindsChecked, s.Conforming, len(s.NonConforming), s.CriticalCount, s.WarningCount, s.InfoCount)
}

// errWriter keeps the first write error so Emit can report it once.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
