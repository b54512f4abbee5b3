package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

type Registry struct {
	reg *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ActionsTotal        *prometheus.CounterVec
	ActionDuration      *prometheus.HistogramVec
	RunsTotal           *prometheus.CounterVec
}

// NewRegistry builds an isolated registry with Go runtime collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Registry{
		reg: reg,
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crm_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ActionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_automation_actions_total",
				Help: "Executed automation actions by type and outcome",
			},
			[]string{"action_type", "status"},
		),
		ActionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crm_automation_action_duration_seconds",
				Help:    "Duration of automation actions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action_type"},
		),
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_automation_runs_total",
				Help: "Automations fired by trigger type",
			},
			[]string{"trigger_type"},
		),
	}
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus text format for fasthttp
// based servers.
func (r *Registry) Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
}
