package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/modelcritic/internal/schema"
)

func sample() *schema.AuditResult {
	return &schema.AuditResult{
		Tool:        "modelcritic",
		GeneratedAt: time.Unix(1715342400, 0),
		Summary: schema.Summary{
			KindsChecked: 2, Conforming: 1,
			CriticalCount: 1, WarningCount: 2, InfoCount: 3,
		},
		Kinds: []schema.KindResult{
			{
				Kind: "Formation", Namespace: "formations",
				Critical: []schema.Finding{{Severity: schema.SeverityCritical, Message: "x"}},
				Warning:  []schema.Finding{{Severity: schema.SeverityWarning, Message: "y"}, {Severity: schema.SeverityWarning, Message: "z"}},
			},
			{Kind: "Rapport", Namespace: "rapports", Conforming: true},
		},
	}
}

func TestObserve_Gauges(t *testing.T) {
	r := New()
	r.Observe(sample(), 24, 1500*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.kindsChecked))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.kindsConforming))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.findings.WithLabelValues("WARNING")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.findings.WithLabelValues("INFO")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.kindFindings.WithLabelValues("formations", "Formation", "WARNING")))
	assert.Equal(t, 24.0, testutil.ToFloat64(r.ruleInvocations))
	assert.Equal(t, 1.5, testutil.ToFloat64(r.duration))
	assert.Equal(t, 1715342400.0, testutil.ToFloat64(r.lastRun))
}

func TestObserve_ResetsPerKindSeries(t *testing.T) {
	r := New()
	r.Observe(sample(), 0, 0)
	next := sample()
	next.Kinds = next.Kinds[1:]
	r.Observe(next, 0, 0)

	assert.Equal(t, 3, testutil.CollectAndCount(r.kindFindings))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.Observe(sample(), 10, time.Second)

	path := filepath.Join(t.TempDir(), "modelcritic.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(data)
	assert.True(t, strings.Contains(s, "modelcritic_kinds_checked 2"), s)
	assert.Contains(t, s, `modelcritic_findings{severity="CRITICAL"} 1`)
}

func TestWriteTextfile_BadPath(t *testing.T) {
	r := New()
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "no", "such", "dir", "m.prom"))
	assert.Error(t, err)
}
