package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolshelf_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// ReviewDecisions counts admin review outcomes by decision.
	ReviewDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolshelf_review_decisions_total",
		Help: "Total number of submission review decisions",
	}, []string{"decision"})

	// EmailSendFailures counts notification emails that could not be delivered.
	EmailSendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toolshelf_email_send_failures_total",
		Help: "Total number of notification emails that failed to send",
	})

	// VariantJobs counts showcase variant generation runs by result.
	VariantJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolshelf_variant_jobs_total",
		Help: "Total number of image variant generation jobs by result",
	}, []string{"result"})
)

// InitMetrics creates the fiberprometheus middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the HTTP metrics collection handler.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
