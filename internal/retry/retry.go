// Package retry executes flaky external commands with bounded attempts and
// exponential backoff. Failures that look network-related trigger an optional
// callback (proxy rotation) before the backoff sleep, and the attempt
// function is re-invoked fresh each round so rotated parameters take effect.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultBaseDelay is the first backoff interval; attempt k sleeps
// base * 2^(k-1), uncapped.
const DefaultBaseDelay = 5 * time.Second

// Attempt performs one try of the operation. It must rebuild its command from
// current shared state (proxy session and the like) on every invocation
// rather than capturing it once.
type Attempt func(ctx context.Context) error

// Options tunes one Run call.
type Options struct {
	// MaxAttempts bounds the number of tries; values below 1 mean 1.
	MaxAttempts int
	// PerAttemptTimeout bounds each try; zero means no per-attempt deadline.
	PerAttemptTimeout time.Duration
	// OnNetworkFailure runs after a network-classified failure and before the
	// backoff sleep. Its error is logged, never escalated; rotation is an
	// optimization, not a correctness requirement.
	OnNetworkFailure func(ctx context.Context) error
	// BaseDelay overrides DefaultBaseDelay.
	BaseDelay time.Duration
	// Logger receives attempt-level events; nil discards them.
	Logger *slog.Logger

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// ExhaustedError wraps the last failure after every attempt was spent.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Run tries attempt up to opts.MaxAttempts times. Between failed attempts it
// sleeps base * 2^(k-1); no sleep follows the final failure. The last error,
// wrapped in *ExhaustedError, is returned for the caller to escalate.
func Run(ctx context.Context, label string, attempt Attempt, opts Options) error {
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	base := opts.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sleep := opts.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for k := 1; k <= maxAttempts; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if opts.PerAttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, opts.PerAttemptTimeout)
		}
		err := attempt(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if k == maxAttempts {
			logger.Error("final attempt failed", "op", label, "attempts", maxAttempts, "error", err)
			break
		}

		network := IsNetworkError(err)
		logger.Warn("attempt failed", "op", label, "attempt", k, "network", network, "error", err)
		if network && opts.OnNetworkFailure != nil {
			if rotErr := opts.OnNetworkFailure(ctx); rotErr != nil {
				logger.Warn("network-failure callback failed", "op", label, "error", rotErr)
			}
		}

		delay := base << (k - 1)
		logger.Info("backing off before retry", "op", label, "delay", delay.String())
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return &ExhaustedError{Attempts: maxAttempts, Err: lastErr}
}

// networkHints is the fixed pattern set that classifies a failure as
// transient network trouble worth a proxy rotation.
var networkHints = []string{
	"timed out",
	"timeout",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"broken pipe",
	"network is unreachable",
	"temporarily unavailable",
	"service unavailable",
	"tls handshake",
	"ssl",
	"certificate verify",
	"tunnel connection failed",
	"proxy error",
	"429",
	"too many requests",
	"rate limit",
	"http error 5",
}

// IsNetworkError reports whether err matches the network failure pattern set.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	text := strings.ToLower(err.Error())
	for _, hint := range networkHints {
		if strings.Contains(text, hint) {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
