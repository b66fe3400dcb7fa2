package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for GenerationTasks.
const (
	OutcomeCreated      = "created"
	OutcomeSubmitFailed = "submit_failed"
	OutcomeCompleted    = "completed"
	OutcomeFailed       = "failed"
)

var (
	GenerationTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petssanta_generation_tasks_total",
		Help: "Generation task lifecycle events by outcome",
	}, []string{"outcome"})

	GenerationRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petssanta_generation_retries_total",
		Help: "Retry attempts by result",
	}, []string{"result"})

	Credits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petssanta_credits_total",
		Help: "Credits moved through the ledger by direction",
	}, []string{"direction"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petssanta_webhook_events_total",
		Help: "Payment webhook events by type and result",
	}, []string{"type", "result"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "petssanta_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "route", "status"})
)

// RequestDuration records the latency of every request under its route
// pattern.
func RequestDuration() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		httpLatency.WithLabelValues(c.Method(), route, statusClass(status)).Observe(time.Since(start).Seconds())
		return err
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
