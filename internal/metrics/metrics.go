// Package metrics holds the Prometheus collectors for the session layer.
package metrics

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"marketplates/pkg/apierror"
)

const OutcomeSuccess = "success"

var (
	// LoginAttempts counts authenticate calls by outcome ("success" or an
	// error code such as "invalid_credentials").
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"outcome"},
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_refresh_total",
			Help: "Total number of access token refresh attempts",
		},
		[]string{"outcome"},
	)

	RefreshTokensPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_refresh_tokens_pruned_total",
			Help: "Expired refresh tokens removed from user records",
		},
	)

	Logouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logout_total",
			Help: "Total number of logout requests",
		},
		[]string{"outcome"},
	)

	CSRFChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_csrf_operations_total",
			Help: "CSRF token issuance and verification by outcome",
		},
		[]string{"operation", "outcome"},
	)

	CaptchaRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_captcha_requests_total",
			Help: "Outbound captcha verifications by outcome",
		},
		[]string{"outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)

// Outcome turns an operation result into a low-cardinality label value.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return strings.ToLower(apiErr.Code)
	}
	return "error"
}
