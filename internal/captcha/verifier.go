// Package captcha verifies reCAPTCHA-style tokens against a siteverify
// endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"marketplates/internal/metrics"
)

const breakerName = "captcha-verify"

// ErrRejected is returned when the provider answered and said no.
var ErrRejected = errors.New("captcha rejected")

type verifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

type Verifier struct {
	secret    string
	verifyURL string
	client    *http.Client
	cb        *gobreaker.CircuitBreaker[bool]
}

func NewVerifier(secret string, verifyURL string, timeout time.Duration) *Verifier {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A rejected token is a healthy provider.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Verifier{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: timeout},
		cb:        cb,
	}
}

// Verify returns nil when the provider accepts token, ErrRejected when it
// refuses it, and any other error when the provider could not be asked.
func (v *Verifier) Verify(ctx context.Context, token string, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		metrics.CaptchaRequests.WithLabelValues("rejected").Inc()
		return ErrRejected
	}

	_, err := v.cb.Execute(func() (bool, error) {
		return v.call(ctx, token, remoteIP)
	})

	switch {
	case err == nil:
		metrics.CaptchaRequests.WithLabelValues(metrics.OutcomeSuccess).Inc()
	case errors.Is(err, ErrRejected):
		metrics.CaptchaRequests.WithLabelValues("rejected").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CaptchaRequests.WithLabelValues("circuit_open").Inc()
	default:
		metrics.CaptchaRequests.WithLabelValues("error").Inc()
	}

	return err
}

func (v *Verifier) call(ctx context.Context, token string, remoteIP string) (bool, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("captcha request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("captcha provider returned status %d", resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode captcha response: %w", err)
	}

	if !body.Success {
		slog.Debug("captcha rejected", "error_codes", body.ErrorCodes)
		return false, ErrRejected
	}

	return true, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
