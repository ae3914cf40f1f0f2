// Package prometheus exposes tenant decision counters.
package prometheus

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// Compile-time check: Recorder implements domain.Recorder.
var _ domain.Recorder = (*Recorder)(nil)

// Recorder holds all Prometheus metrics of the engine.
type Recorder struct {
	registry *prometheus.Registry

	DefinitionResolutions *prometheus.CounterVec
	AuthorizationDenials  *prometheus.CounterVec
	JobsExecuted          *prometheus.CounterVec
}

// NewRecorder creates the metrics on a private registry, so several
// engines in one process (tests) do not collide.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		DefinitionResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantscope_definition_resolutions_total",
				Help: "Definition lookups by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		AuthorizationDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantscope_authorization_denials_total",
				Help: "Operations rejected by the tenant check",
			},
			[]string{"operation"},
		),

		JobsExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantscope_jobs_executed_total",
				Help: "Executed jobs by type, tenant scope and result",
			},
			[]string{"type", "scoped", "failed"},
		),
	}
}

func (r *Recorder) DefinitionResolved(kind domain.DefinitionKind, outcome string) {
	r.DefinitionResolutions.WithLabelValues(string(kind), outcome).Inc()
}

func (r *Recorder) AuthorizationDenied(operation string) {
	r.AuthorizationDenials.WithLabelValues(operation).Inc()
}

func (r *Recorder) JobExecuted(jobType domain.JobType, scoped bool, failed bool) {
	r.JobsExecuted.WithLabelValues(string(jobType), strconv.FormatBool(scoped), strconv.FormatBool(failed)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
