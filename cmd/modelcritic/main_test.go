package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/modelcritic/internal/config"
	"github.com/dshills/modelcritic/internal/drift"
	"github.com/dshills/modelcritic/internal/manifest"
)

const (
	projectDir   = "../../internal/extract/pysource/testdata/project"
	manifestFile = "../../internal/manifest/testdata/rapports.yaml"
)

// execute runs the command tree with args and returns what it printed.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv(config.EnvLogLevel, "error")
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

// exitCode returns the code main would exit with.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsage
}

// --- Tests ---

func TestAudit_BuiltinRapportConforms(t *testing.T) {
	out, _, err := execute(t, "audit", "--no-color")
	if err != nil {
		t.Fatalf("audit returned error: %v", err)
	}
	if !strings.Contains(out, "== rapports.Rapport") {
		t.Errorf("missing Rapport header:\n%s", out)
	}
	if !strings.Contains(out, "1 kinds checked: 1 conforming, 0 non-conforming (0 critical, 0 warning") {
		t.Errorf("Rapport should conform:\n%s", out)
	}
}

func TestAudit_PythonSourceSkipsExcludedNamespaces(t *testing.T) {
	out, _, err := execute(t, "audit", "--no-builtin", "--source", projectDir, "--no-color")
	if err != nil {
		t.Fatalf("audit returned error: %v", err)
	}
	for _, want := range []string{"== centres.Centre", "== formations.Formation", "== formations.HistoriqueFormation", "3 kinds checked"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "auth.Group") {
		t.Errorf("auth namespace should be excluded:\n%s", out)
	}
}

func TestAudit_NamespaceFilterReachesExcluded(t *testing.T) {
	out, _, err := execute(t, "audit", "--no-builtin", "--source", projectDir, "--namespace", "auth", "--no-color")
	if err != nil {
		t.Fatalf("audit returned error: %v", err)
	}
	if !strings.Contains(out, "== auth.Group") || !strings.Contains(out, "1 kinds checked") {
		t.Errorf("explicit namespace should select auth.Group:\n%s", out)
	}
}

func TestAudit_SeverityThresholdFiltersOutputOnly(t *testing.T) {
	full, _, err := execute(t, "audit", "--no-builtin", "--source", projectDir, "--no-color")
	if err != nil {
		t.Fatalf("audit returned error: %v", err)
	}
	if !strings.Contains(full, "WARNING  [") {
		t.Fatalf("fixture project should produce warnings:\n%s", full)
	}

	path := filepath.Join(t.TempDir(), "critical.json")
	out, _, err := execute(t, "audit", "--no-builtin", "--source", projectDir, "--no-color",
		"--severity-threshold", "critical", "--export", path)
	if err != nil {
		t.Fatalf("audit returned error: %v", err)
	}
	if strings.Contains(out, "WARNING  [") {
		t.Errorf("warnings printed above a critical threshold:\n%s", out)
	}
	if !strings.Contains(out, "CRITICAL [") {
		t.Errorf("critical findings should still be printed:\n%s", out)
	}
	if summaryLine(full) != summaryLine(out) {
		t.Errorf("summary must keep full counts:\n%s\n%s", summaryLine(full), summaryLine(out))
	}

	result, err := drift.LoadFile(path)
	if err != nil {
		t.Fatalf("filtered export is not a valid audit document: %v", err)
	}
	if result.SeverityThreshold != "CRITICAL" {
		t.Errorf("severity_threshold = %q", result.SeverityThreshold)
	}
	if result.Summary.WarningCount == 0 {
		t.Error("summary warning count should survive filtering")
	}
	for _, k := range result.Kinds {
		if len(k.Warning) != 0 {
			t.Errorf("%s kept %d warnings", k.Kind, len(k.Warning))
		}
	}
}

func summaryLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	return lines[len(lines)-1]
}

func TestAudit_UnknownKind_ExitsLookupWithoutRules(t *testing.T) {
	opts, err := resolveAuditOptions(config.Default(), auditFlags{kind: "DoesNotExist", noColor: true})
	if err != nil {
		t.Fatalf("resolveAuditOptions: %v", err)
	}
	var out bytes.Buffer
	run, err := runAudit(context.Background(), opts, &out, hclog.NewNullLogger())
	if code := exitCode(err); code != exitLookup {
		t.Fatalf("exit code = %d, want %d (err: %v)", code, exitLookup, err)
	}
	if run.invocations != 0 {
		t.Errorf("rule invocations = %d, want 0", run.invocations)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be printed on lookup failure, got:\n%s", out.String())
	}
}

func TestAudit_LookupSuggestion(t *testing.T) {
	_, _, err := execute(t, "audit", "--kind", "Rapprt")
	if exitCode(err) != exitLookup {
		t.Fatalf("expected exit %d, got %v", exitLookup, err)
	}
	if !strings.Contains(err.Error(), "Rapport") {
		t.Errorf("error should suggest Rapport: %v", err)
	}
}

func TestAudit_ExportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.yaml")
	if _, _, err := execute(t, "audit", "--export", path); err != nil {
		t.Fatalf("audit returned error: %v", err)
	}
	result, err := drift.LoadFile(path)
	if err != nil {
		t.Fatalf("export is not a valid audit document: %v", err)
	}
	if result.Summary.KindsChecked != 1 || result.Tool != "modelcritic" {
		t.Errorf("unexpected export: %+v", result.Summary)
	}
}

func TestAudit_ExportFailure_ExitsWriteAfterFindings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "audit.json")
	out, _, err := execute(t, "audit", "--export", path, "--no-color")
	if code := exitCode(err); code != exitWrite {
		t.Fatalf("exit code = %d, want %d (err: %v)", code, exitWrite, err)
	}
	if !strings.Contains(out, "kinds checked") {
		t.Errorf("findings must be printed before the export error:\n%s", out)
	}
}

func TestAudit_MetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modelcritic.prom")
	if _, _, err := execute(t, "audit", "--metrics-file", path); err != nil {
		t.Fatalf("audit returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading metrics: %v", err)
	}
	if !strings.Contains(string(data), "modelcritic_kinds_checked 1") {
		t.Errorf("metrics missing kinds_checked:\n%s", data)
	}
}

func TestAudit_InvalidFlags_ExitsUsage(t *testing.T) {
	cases := map[string][]string{
		"bad format":     {"audit", "--format", "xml"},
		"missing source": {"audit", "--source", filepath.Join(t.TempDir(), "nope")},
		"nothing to run": {"audit", "--no-builtin"},
		"unknown flag":   {"audit", "--colour"},
		"bad threshold":  {"audit", "--severity-threshold", "warning"},
		"stray argument": {"audit", "extra"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := execute(t, args...)
			if code := exitCode(err); code != exitUsage {
				t.Errorf("exit code = %d, want %d (err: %v)", code, exitUsage, err)
			}
		})
	}
}

func TestAudit_ConfigFile(t *testing.T) {
	root, err := filepath.Abs(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(t.TempDir(), "modelcritic.yml")
	cfg := "sources:\n  builtin: false\n  python:\n    - root: " + root + "\naudit:\n  exclude_namespaces: [centres]\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := execute(t, "--config", cfgPath, "audit", "--no-color")
	if err != nil {
		t.Fatalf("audit returned error: %v", err)
	}
	if !strings.Contains(out, "== formations.Formation") || strings.Contains(out, "centres.Centre") {
		t.Errorf("config sources or exclusions not applied:\n%s", out)
	}
}

func TestAudit_BadConfig_ExitsUsage(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "modelcritic.yml")
	if err := os.WriteFile(cfgPath, []byte("export:\n  format: xml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := execute(t, "--config", cfgPath, "audit")
	if code := exitCode(err); code != exitUsage {
		t.Errorf("exit code = %d, want %d (err: %v)", code, exitUsage, err)
	}
}

func TestAudit_ManifestSource(t *testing.T) {
	out, _, err := execute(t, "audit", "--no-builtin", "--manifest", manifestFile, "--no-color", "--verbose")
	if err != nil {
		t.Fatalf("audit returned error: %v", err)
	}
	if !strings.Contains(out, "== rapports.Rapport") || !strings.Contains(out, "== rapports.Export") {
		t.Errorf("manifest kinds missing:\n%s", out)
	}
}

func TestDiff_IdenticalRuns(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")
	for _, p := range []string{a, b} {
		if _, _, err := execute(t, "audit", "--export", p); err != nil {
			t.Fatalf("audit: %v", err)
		}
	}
	out, _, err := execute(t, "diff", a, b, "--fail-on-drift")
	if err != nil {
		t.Fatalf("diff returned error: %v", err)
	}
	if strings.TrimSpace(out) != "no drift" {
		t.Errorf("diff output = %q", out)
	}
}

func TestDiff_Drift(t *testing.T) {
	dir := t.TempDir()
	older, newer := filepath.Join(dir, "old.json"), filepath.Join(dir, "new.json")
	if _, _, err := execute(t, "audit", "--export", older); err != nil {
		t.Fatalf("audit: %v", err)
	}
	if _, _, err := execute(t, "audit", "--source", projectDir, "--export", newer); err != nil {
		t.Fatalf("audit: %v", err)
	}

	out, _, err := execute(t, "diff", older, newer)
	if err != nil {
		t.Fatalf("diff without --fail-on-drift should succeed: %v", err)
	}
	if !strings.Contains(out, "+ formations.Formation (new kind") {
		t.Errorf("added kind not reported:\n%s", out)
	}
	if !strings.Contains(out, "@@") {
		t.Errorf("patch missing:\n%s", out)
	}

	_, _, err = execute(t, "diff", older, newer, "--fail-on-drift")
	if code := exitCode(err); code != exitDrift {
		t.Errorf("exit code = %d, want %d", code, exitDrift)
	}
}

func TestDiff_InvalidDocument(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := execute(t, "diff", bad, bad)
	if code := exitCode(err); code != exitUsage {
		t.Errorf("exit code = %d, want %d", code, exitUsage)
	}
}

func TestKinds_ManifestRoundTrip(t *testing.T) {
	out, _, err := execute(t, "kinds", "--no-builtin", "--source", projectDir, "--namespace", "formations")
	if err != nil {
		t.Fatalf("kinds returned error: %v", err)
	}
	kinds, err := manifest.Decode(strings.NewReader(out))
	if err != nil {
		t.Fatalf("kinds output is not a loadable manifest: %v\n%s", err, out)
	}
	if len(kinds) != 2 || kinds[0].Name != "Formation" || kinds[1].Name != "HistoriqueFormation" {
		t.Errorf("unexpected kinds: %d", len(kinds))
	}
}

func TestKinds_UnknownNamespace(t *testing.T) {
	_, _, err := execute(t, "kinds", "--namespace", "nope")
	if code := exitCode(err); code != exitLookup {
		t.Errorf("exit code = %d, want %d", code, exitLookup)
	}
}

func TestRules_ListsRulesAndProfiles(t *testing.T) {
	out, _, err := execute(t, "rules")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		" 1. structure",
		"10. states",
		"Profile: Rapport",
		"Constants: FORMAT_CHOICES, MAX_SPAN_BY_PERIODE, PERIODE_CHOICES, TYPE_CHOICES",
		"State methods: est_personnalise, is_recent",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rules output missing %q", want)
		}
	}
}

func TestRules_SingleProfile(t *testing.T) {
	out, _, err := execute(t, "rules", "LogUtilisateur")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Profile: LogUtilisateur\n") || !strings.Contains(out, "- content_object") {
		t.Errorf("unexpected profile output:\n%s", out)
	}
	if strings.Contains(out, "Generic rules") {
		t.Errorf("single profile should not list generic rules:\n%s", out)
	}

	_, _, err = execute(t, "rules", "Nope")
	if code := exitCode(err); code != exitUsage {
		t.Fatalf("exit code = %d, want %d", code, exitUsage)
	}
	if !strings.Contains(err.Error(), "valid profiles are") {
		t.Errorf("error should list profiles: %v", err)
	}
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "modelcritic dev\n" {
		t.Errorf("version output = %q", out)
	}
}
