// Package metrics publishes audit results as Prometheus gauges written to a
// node-exporter textfile, so a scheduled audit can be scraped without
// running a server.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/modelcritic/internal/schema"
)

const namespace = "modelcritic"

// Recorder owns a private registry so repeated runs never collide with the
// global default registry.
type Recorder struct {
	reg *prometheus.Registry

	kindsChecked    prometheus.Gauge
	kindsConforming prometheus.Gauge
	findings        *prometheus.GaugeVec
	kindFindings    *prometheus.GaugeVec
	ruleInvocations prometheus.Gauge
	duration        prometheus.Gauge
	lastRun         prometheus.Gauge
}

// New returns a Recorder with every metric registered.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		kindsChecked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "kinds_checked",
			Help: "Record kinds audited by the last run.",
		}),
		kindsConforming: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "kinds_conforming",
			Help: "Record kinds with no CRITICAL or WARNING finding.",
		}),
		findings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "findings",
			Help: "Findings of the last run by severity.",
		}, []string{"severity"}),
		kindFindings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "kind_findings",
			Help: "Findings per audited kind and severity.",
		}, []string{"namespace", "kind", "severity"}),
		ruleInvocations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "rule_invocations",
			Help: "Rule invocations performed by the last run.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "audit_duration_seconds",
			Help: "Wall time of the last audit.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds",
			Help: "Unix time the last audit result was generated.",
		}),
	}
	r.reg.MustRegister(r.kindsChecked, r.kindsConforming, r.findings, r.kindFindings,
		r.ruleInvocations, r.duration, r.lastRun)
	return r
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Observe replaces the gauges with the values of result.
func (r *Recorder) Observe(result *schema.AuditResult, invocations int, elapsed time.Duration) {
	s := result.Summary
	r.kindsChecked.Set(float64(s.KindsChecked))
	r.kindsConforming.Set(float64(s.Conforming))
	r.findings.WithLabelValues(string(schema.SeverityCritical)).Set(float64(s.CriticalCount))
	r.findings.WithLabelValues(string(schema.SeverityWarning)).Set(float64(s.WarningCount))
	r.findings.WithLabelValues(string(schema.SeverityInfo)).Set(float64(s.InfoCount))

	r.kindFindings.Reset()
	for _, k := range result.Kinds {
		r.kindFindings.WithLabelValues(k.Namespace, k.Kind, string(schema.SeverityCritical)).Set(float64(len(k.Critical)))
		r.kindFindings.WithLabelValues(k.Namespace, k.Kind, string(schema.SeverityWarning)).Set(float64(len(k.Warning)))
		r.kindFindings.WithLabelValues(k.Namespace, k.Kind, string(schema.SeverityInfo)).Set(float64(len(k.Info)))
	}

	r.ruleInvocations.Set(float64(invocations))
	r.duration.Set(elapsed.Seconds())
	if !result.GeneratedAt.IsZero() {
		r.lastRun.Set(float64(result.GeneratedAt.Unix()))
	}
}

// WriteTextfile atomically writes the registry in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("metrics %s: %w", path, err)
	}
	return nil
}
