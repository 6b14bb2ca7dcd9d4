// Package recovery implements the retry/backoff/quiesce policy applied to
// feed and exchange errors, grounded on the teacher's recovery handler but
// tuned to the fixed parameters used across this engine: a 1s base delay,
// a 60s cap, +/-20% jitter, and quiescing after 5 consecutive failures on
// the same source.
package recovery

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/vantrade/gridbot/internal/boterrors"
)

const (
	// BaseDelay is the starting backoff delay for a retriable error.
	BaseDelay = 1 * time.Second
	// MaxDelay caps the backoff delay regardless of attempt count.
	MaxDelay = 60 * time.Second
	// JitterFraction is the proportional jitter applied to each delay, in
	// both directions (i.e. delay in [d*(1-f), d*(1+f)]).
	JitterFraction = 0.20
	// QuiesceThreshold is the number of consecutive same-category failures
	// that trigger quiescing a source (feed, exchange connection) rather
	// than continuing to retry it.
	QuiesceThreshold = 5
)

// Logger is the minimal logging surface the recovery handler needs.
type Logger interface {
	Info(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

// Handler applies the retry/backoff/quiesce policy to operations that can
// fail with a categorized *boterrors.BotError.
type Handler struct {
	stats  *boterrors.Stats
	logger Logger
	rng    *rand.Rand
}

// Result describes what the caller should do next after an error.
type Result struct {
	Action     boterrors.RecoveryAction
	Delay      time.Duration
	ShouldStop bool
	Quiesce    bool
	Message    string
}

// New creates a recovery handler retaining the last 50 errors for
// consecutive-failure tracking.
func New(logger Logger) *Handler {
	return &Handler{
		stats:  boterrors.NewStats(50),
		logger: logger,
		rng:    rand.New(rand.NewSource(1)),
	}
}

// HandleError categorizes err, records it, and decides the next action.
func (h *Handler) HandleError(err error, component, operation string, attempt int) *Result {
	botErr := boterrors.Categorize(err, component, operation)
	h.stats.Record(botErr)
	h.logError(botErr, attempt)

	if botErr.IsFatal() {
		return &Result{
			Action:     boterrors.RecoveryStop,
			ShouldStop: true,
			Message:    fmt.Sprintf("fatal error in %s: %s", botErr.Component, botErr.Message),
		}
	}

	if h.stats.ConsecutiveFailures(botErr.Category) >= QuiesceThreshold {
		h.logger.Error("quiescing %s after %d consecutive %s errors", component, QuiesceThreshold, botErr.Category)
		return &Result{
			Action:  boterrors.RecoveryQuiesce,
			Quiesce: true,
			Message: fmt.Sprintf("%d consecutive %s errors, quiescing", QuiesceThreshold, botErr.Category),
		}
	}

	action := botErr.RecoveryAction()
	delay := h.calculateDelay(attempt)

	return &Result{
		Action:  action,
		Delay:   delay,
		Message: fmt.Sprintf("%s on %s.%s (attempt %d): %s", action, component, operation, attempt+1, botErr.Message),
	}
}

// calculateDelay computes an exponential backoff delay for the given retry
// attempt (0-indexed), capped at MaxDelay and jittered by +/-JitterFraction.
func (h *Handler) calculateDelay(attempt int) time.Duration {
	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= 2.0
	}
	delay := time.Duration(float64(BaseDelay) * multiplier)
	if delay > MaxDelay {
		delay = MaxDelay
	}
	return addJitter(delay, h.rng)
}

// addJitter perturbs delay by a uniformly distributed +/-JitterFraction.
func addJitter(delay time.Duration, rng *rand.Rand) time.Duration {
	if delay <= 0 {
		return delay
	}
	spread := float64(delay) * JitterFraction
	offset := (rng.Float64()*2 - 1) * spread
	jittered := time.Duration(float64(delay) + offset)
	if jittered < 0 {
		jittered = 0
	}
	return jittered
}

func (h *Handler) logError(botErr *boterrors.BotError, attempt int) {
	switch {
	case botErr.IsFatal():
		h.logger.Error("fatal: %s", botErr.Error())
	case attempt > 0:
		h.logger.Warning("attempt %d: %s", attempt+1, botErr.Error())
	default:
		h.logger.Debug("error: %s", botErr.Error())
	}
}

// ExecuteWithRecovery runs fn, retrying under the backoff policy until it
// succeeds, a fatal/quiesce condition is hit, or ctx is cancelled.
func (h *Handler) ExecuteWithRecovery(ctx context.Context, component, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			if attempt > 0 {
				h.logger.Info("%s.%s succeeded after %d attempts", component, operation, attempt+1)
			}
			return nil
		}
		lastErr = err

		result := h.HandleError(err, component, operation, attempt)
		if result.ShouldStop || result.Quiesce {
			return lastErr
		}

		switch result.Action {
		case boterrors.RecoverySkip:
			return lastErr
		case boterrors.RecoveryRetry, boterrors.RecoveryWait:
			if result.Delay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(result.Delay):
				}
			}
		default:
			h.logger.Warning("unhandled recovery action %s for %s.%s", result.Action, component, operation)
		}
	}
}

// Stats returns the handler's running error statistics.
func (h *Handler) Stats() *boterrors.Stats {
	return h.stats
}

// Reset clears error statistics, e.g. after a successful reconnect.
func (h *Handler) Reset() {
	h.stats = boterrors.NewStats(50)
}
