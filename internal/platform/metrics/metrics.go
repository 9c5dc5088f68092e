// Package metrics exposes roster and HTTP server metrics in Prometheus
// format.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ehr/hsm/internal/domain/hospital"
)

const namespace = "hsm"

// Metrics owns a private registry so tests and multiple servers in one
// process do not collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	registrations   *prometheus.CounterVec
	doctors         *prometheus.GaugeVec
	waitingList     prometheus.Gauge
	saveFailures    prometheus.Counter
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
	panics          prometheus.Counter
}

// New builds the collectors and registers them together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patient_registrations_total",
			Help:      "Patient registrations by outcome.",
		}, []string{"outcome"}),
		doctors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "doctors",
			Help:      "Doctors on the roster by status.",
		}, []string{"status"}),
		waitingList: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting_list_size",
			Help:      "Entries currently on the waiting list.",
		}),
		saveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_save_failures_total",
			Help:      "Roster snapshots that failed to persist.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "Duration of HTTP server requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status_code"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests.",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_server_panics_total",
			Help: "Handler panics recovered by the server.",
		}),
	}
	m.registry.MustRegister(
		m.registrations,
		m.doctors,
		m.waitingList,
		m.saveFailures,
		m.requestDuration,
		m.activeRequests,
		m.panics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Registered implements hospital.Observer.
func (m *Metrics) Registered(outcome hospital.Outcome) {
	m.registrations.WithLabelValues(string(outcome)).Inc()
}

// Roster implements hospital.Observer.
func (m *Metrics) Roster(available, assigned, waiting int) {
	m.doctors.WithLabelValues(string(hospital.StatusAvailable)).Set(float64(available))
	m.doctors.WithLabelValues(string(hospital.StatusAssigned)).Set(float64(assigned))
	m.waitingList.Set(float64(waiting))
}

// SaveFailed implements hospital.Observer.
func (m *Metrics) SaveFailed() {
	m.saveFailures.Inc()
}

// Panicked counts one recovered handler panic.
func (m *Metrics) Panicked() {
	m.panics.Inc()
}

// Middleware records request duration labelled by route pattern rather
// than raw path so ids do not explode the label set.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.activeRequests.Inc()
			defer m.activeRequests.Dec()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.requestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry at /metrics.
func (m *Metrics) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return echo.WrapHandler(h)
}

var _ hospital.Observer = (*Metrics)(nil)
