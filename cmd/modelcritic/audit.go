package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/dshills/modelcritic/internal/config"
	"github.com/dshills/modelcritic/internal/extract/goreflect"
	"github.com/dshills/modelcritic/internal/extract/pysource"
	"github.com/dshills/modelcritic/internal/kind"
	"github.com/dshills/modelcritic/internal/logger"
	"github.com/dshills/modelcritic/internal/manifest"
	"github.com/dshills/modelcritic/internal/metrics"
	"github.com/dshills/modelcritic/internal/registry"
	"github.com/dshills/modelcritic/internal/render"
	"github.com/dshills/modelcritic/internal/report"
	"github.com/dshills/modelcritic/internal/review"
	"github.com/dshills/modelcritic/internal/rules"
	"github.com/dshills/modelcritic/internal/schema"
	"github.com/dshills/modelcritic/internal/signals"
)

// auditFlags holds the parsed flags shared by audit, watch and kinds.
type auditFlags struct {
	namespace         string
	kind              string
	verbose           bool
	showOK            bool
	export            string
	format            string
	sources           []string
	manifests         []string
	excludeNamespaces []string
	noBuiltin         bool
	noColor           bool
	metricsFile       string
	severityThreshold string
}

// auditOptions are the flags merged with the configuration file.
type auditOptions struct {
	auditFlags
	python []config.PythonSource
}

// auditRun is the outcome of one audit.
type auditRun struct {
	result      *schema.AuditResult
	invocations int
	problems    []string
}

func newAuditCmd(load configLoader, stdout, stderr io.Writer) *cobra.Command {
	var flags auditFlags
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit record kinds and print findings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			opts, err := resolveAuditOptions(cfg, flags)
			if err != nil {
				return err
			}
			log := logger.New(cfg, "modelcritic", stderr)
			_, err = runAudit(cmd.Context(), opts, stdout, log)
			return err
		},
	}
	addAuditFlags(cmd, &flags)
	return cmd
}

func addAuditFlags(cmd *cobra.Command, flags *auditFlags) {
	addSelectionFlags(cmd, flags)
	f := cmd.Flags()
	f.BoolVar(&flags.verbose, "verbose", false, "Show INFO findings and keep them in exports")
	f.BoolVar(&flags.showOK, "show-ok", false, "Print a notice for kinds whose specialized checks all pass")
	f.StringVar(&flags.export, "export", "", "Write the audit result to this file")
	f.StringVar(&flags.format, "format", "", "Export format: json, yaml, sarif or md (default from the file extension)")
	f.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus metrics of the run to this textfile")
	f.StringVar(&flags.severityThreshold, "severity-threshold", "", "Minimum severity to print and export: info, warn, or critical (default info)")
}

// addSelectionFlags registers the flags choosing which kinds are loaded.
func addSelectionFlags(cmd *cobra.Command, flags *auditFlags) {
	f := cmd.Flags()
	f.StringVar(&flags.namespace, "namespace", "", "Only kinds of this namespace (app)")
	f.StringVar(&flags.kind, "kind", "", "Only kinds with this name")
	f.StringArrayVar(&flags.sources, "source", nil, "Django project root to extract models from (may be repeated)")
	f.StringArrayVar(&flags.manifests, "manifest", nil, "Kind manifest file or glob (may be repeated)")
	f.StringArrayVar(&flags.excludeNamespaces, "exclude-namespace", nil, "Namespace to skip when no filter is given (may be repeated)")
	f.BoolVar(&flags.noBuiltin, "no-builtin", false, "Do not audit the Go models compiled into modelcritic")
}

// resolveAuditOptions merges flags over the configuration and validates the
// result. Flag values win; list flags add to the configured lists.
func resolveAuditOptions(cfg *config.Config, flags auditFlags) (auditOptions, error) {
	opts := auditOptions{auditFlags: flags}
	opts.verbose = flags.verbose || cfg.Audit.Verbose
	opts.showOK = flags.showOK || cfg.Audit.ShowOK
	opts.noBuiltin = flags.noBuiltin || !cfg.BuiltinEnabled()
	if opts.export == "" {
		opts.export = cfg.Export.Path
	}
	if opts.format == "" {
		opts.format = cfg.Export.Format
	}
	if opts.metricsFile == "" {
		opts.metricsFile = cfg.Metrics.File
	}
	if opts.severityThreshold == "" {
		opts.severityThreshold = cfg.Audit.SeverityThreshold
	}
	if opts.severityThreshold == "" {
		opts.severityThreshold = "info"
	}
	opts.excludeNamespaces = append(append([]string(nil), cfg.Audit.ExcludeNamespaces...), flags.excludeNamespaces...)
	opts.manifests = append(append([]string(nil), cfg.Sources.Manifests...), flags.manifests...)
	opts.python = append([]config.PythonSource(nil), cfg.Sources.Python...)
	for _, dir := range flags.sources {
		opts.python = append(opts.python, config.PythonSource{Root: dir})
	}

	if err := validateAuditOptions(opts); err != nil {
		return auditOptions{}, codeError(exitUsage, "invalid flags: %s", err)
	}
	return opts, nil
}

func validateAuditOptions(opts auditOptions) error {
	if opts.format != "" {
		if _, err := render.NewRenderer(opts.format); err != nil {
			return fmt.Errorf("--format: %w", err)
		}
	}
	switch opts.severityThreshold {
	case "info", "warn", "critical":
	default:
		return fmt.Errorf("--severity-threshold must be info, warn, or critical, got %q", opts.severityThreshold)
	}
	for _, p := range opts.python {
		info, err := os.Stat(p.Root)
		if err != nil {
			return fmt.Errorf("--source %s: %w", p.Root, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("--source %s: not a directory", p.Root)
		}
	}
	if opts.noBuiltin && len(opts.python) == 0 && len(opts.manifests) == 0 {
		return errors.New("--no-builtin leaves nothing to audit; add --source or --manifest")
	}
	if strings.TrimSpace(opts.namespace) != opts.namespace || strings.TrimSpace(opts.kind) != opts.kind {
		return errors.New("--namespace and --kind must not contain surrounding spaces")
	}
	return nil
}

// buildRegistry adds the configured sources in a fixed order: built-in Go
// models, Django sources, then manifests.
func buildRegistry(opts auditOptions, log hclog.Logger) (*registry.Registry, error) {
	reg := registry.New(
		registry.WithExcludedNamespaces(opts.excludeNamespaces...),
		registry.WithLogger(log.Named("registry")),
	)
	if !opts.noBuiltin {
		bus := signals.NewRegistry()
		if _, err := report.NewApp(bus, log); err != nil {
			return nil, err
		}
		src := goreflect.NewSource(bus)
		src.Register(report.Namespace, &report.Rapport{})
		reg.AddSource(src)
	}
	for _, p := range opts.python {
		reg.AddSource(pysource.NewSource(p.Root, p.Include, p.Exclude, log.Named("pysource")))
	}
	if len(opts.manifests) > 0 {
		reg.AddSource(manifest.NewSource(opts.manifests...))
	}
	return reg, nil
}

// selectKinds loads the registry and applies the namespace/kind filters. A
// lookup miss is reported before any rule runs.
func selectKinds(ctx context.Context, opts auditOptions, log hclog.Logger) ([]*kind.Descriptor, []string, error) {
	reg, err := buildRegistry(opts, log)
	if err != nil {
		return nil, nil, codeError(exitUnexpected, "building registry: %s", err)
	}
	if err := reg.Load(ctx); err != nil {
		return nil, nil, codeError(exitUnexpected, "loading kinds: %s", err)
	}
	problems := reg.Problems()
	log.Debug("registry loaded", "kinds", reg.Len(), "problems", len(problems))
	for _, p := range problems {
		log.Warn("extraction problem", "problem", p)
	}

	kinds, err := reg.ListKinds(opts.namespace, opts.kind)
	if err != nil {
		var nf *registry.NotFoundError
		if errors.As(err, &nf) {
			return nil, problems, codeError(exitLookup, "lookup failed: %s", nf)
		}
		return nil, problems, codeError(exitUnexpected, "listing kinds: %s", err)
	}
	return kinds, problems, nil
}

// runAudit executes one audit: lookup, rules, aggregation, then the human
// stream on stdout followed by the optional export and metrics textfile.
// Write failures of the latter two are returned after findings were printed.
func runAudit(ctx context.Context, opts auditOptions, stdout io.Writer, log hclog.Logger) (*auditRun, error) {
	start := time.Now()
	run := &auditRun{}

	kinds, problems, err := selectKinds(ctx, opts, log)
	run.problems = problems
	if err != nil {
		return run, err
	}

	engine := rules.NewEngine(log.Named("rules"))
	agg := review.NewAggregator()
	for _, d := range kinds {
		if err := ctx.Err(); err != nil {
			return run, codeError(exitUnexpected, "audit interrupted: %s", err)
		}
		findings, notices := engine.Check(d, rules.Options{ShowOK: opts.showOK})
		agg.Record(d.Name, d.Namespace, d.Source, findings, notices)
	}
	run.invocations = engine.Invocations()
	run.result = agg.Summarize(review.Meta{
		Tool:        "modelcritic",
		Version:     version,
		GeneratedAt: time.Now().UTC(),
		Filters:     schema.Filters{Namespace: opts.namespace, Kind: opts.kind},
		Verbose:     opts.verbose,
	})
	log.Debug("audit complete", "kinds", agg.Len(), "invocations", run.invocations,
		"elapsed", time.Since(start))

	// Threshold filtering affects output only; counts and conformance
	// were computed above from every finding.
	shown := applySeverityThreshold(run.result, parseSeverityThreshold(opts.severityThreshold))

	emitOpts := render.EmitOptions{
		Verbose: opts.verbose,
		Color:   !opts.noColor && render.ColorEnabled(stdout),
	}
	if err := render.Emit(stdout, shown, emitOpts); err != nil {
		return run, codeError(exitUnexpected, "writing findings: %s", err)
	}

	var writeErrs []string
	if opts.export != "" {
		if err := render.Export(opts.export, shown, opts.format); err != nil {
			writeErrs = append(writeErrs, err.Error())
		} else {
			log.Info("audit exported", "path", opts.export)
		}
	}
	if opts.metricsFile != "" {
		rec := metrics.New()
		rec.Observe(run.result, run.invocations, time.Since(start))
		if err := rec.WriteTextfile(opts.metricsFile); err != nil {
			writeErrs = append(writeErrs, err.Error())
		}
	}
	if len(writeErrs) > 0 {
		return run, codeError(exitWrite, "%s", strings.Join(writeErrs, "; "))
	}
	return run, nil
}

// parseSeverityThreshold converts a flag string to a schema.Severity.
func parseSeverityThreshold(s string) schema.Severity {
	switch s {
	case "warn":
		return schema.SeverityWarning
	case "critical":
		return schema.SeverityCritical
	default:
		return schema.SeverityInfo
	}
}

// applySeverityThreshold returns a copy of result whose per-kind lists keep
// only findings at or above threshold.
func applySeverityThreshold(result *schema.AuditResult, threshold schema.Severity) *schema.AuditResult {
	out := *result
	if threshold == schema.SeverityInfo {
		return &out
	}
	out.SeverityThreshold = threshold
	out.Kinds = make([]schema.KindResult, len(result.Kinds))
	for i, k := range result.Kinds {
		k.Critical = review.FilterBySeverity(k.Critical, threshold)
		k.Warning = review.FilterBySeverity(k.Warning, threshold)
		k.Info = review.FilterBySeverity(k.Info, threshold)
		out.Kinds[i] = k
	}
	return &out
}
