package services

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	MONITORING_SVC          = "monitoring_svc"
	DEFAULT_PROMETHEUS_PORT = 2112
)

// HTTP metrics
var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "method", "status"},
	)
)

// Gateway metrics
var (
	gateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_gate_decisions_total",
			Help: "Access gate outcomes by terminating rule and status",
		},
		[]string{"rule", "status"},
	)

	quotaDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trial_quota_denials_total",
			Help: "Quota checks denied, by resource class",
		},
		[]string{"class"},
	)

	usageIncrementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trial_usage_increments_total",
			Help: "Trial usage counter increments, by resource class",
		},
		[]string{"class"},
	)
)

type MonitoringService struct {
	appContext.DefaultService

	registry *prometheus.Registry
	port     int
	server   *http.Server
}

func (svc MonitoringService) Id() string {
	return MONITORING_SVC
}

func (svc *MonitoringService) Configure(ctx *appContext.Context) error {
	svc.port = DEFAULT_PROMETHEUS_PORT
	if port := os.Getenv("PROMETHEUS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			svc.port = p
		}
	}

	svc.registry = prometheus.NewRegistry()
	svc.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequestsTotal,
		httpRequestDurationSeconds,
		gateDecisionsTotal,
		quotaDenialsTotal,
		usageIncrementsTotal,
	)

	return svc.DefaultService.Configure(ctx)
}

func (svc *MonitoringService) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(svc.registry, promhttp.HandlerOpts{}))

	svc.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", svc.port),
		Handler: mux,
	}

	go func() {
		log.Info().Int("port", svc.port).Msg("Prometheus metrics listening")
		if err := svc.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	return nil
}

func (svc *MonitoringService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Close()
	}
}

// Middleware records request count and latency per endpoint.
func (svc *MonitoringService) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		endpoint := c.Route().Path
		if endpoint == "" {
			endpoint = c.Path()
		}

		httpRequestsTotal.WithLabelValues(endpoint, c.Method(), status).Inc()
		httpRequestDurationSeconds.WithLabelValues(endpoint, c.Method(), status).
			Observe(time.Since(start).Seconds())

		return err
	}
}

// MetricsHandler exposes the registry on the main app as well, for
// deployments that cannot scrape the side port.
func (svc *MonitoringService) MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(svc.registry, promhttp.HandlerOpts{}))
}

func (svc *MonitoringService) RecordGateDecision(rule string, status int) {
	gateDecisionsTotal.WithLabelValues(rule, strconv.Itoa(status)).Inc()
}

func (svc *MonitoringService) RecordQuotaDenial(class string) {
	quotaDenialsTotal.WithLabelValues(class).Inc()
}

func (svc *MonitoringService) RecordUsageIncrement(class string) {
	usageIncrementsTotal.WithLabelValues(class).Inc()
}
