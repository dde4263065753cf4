package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kaledh4/daily-alpha-loop/internal/utils"
	metrics "github.com/rcrowley/go-metrics"
)

// ErrExhausted is returned when every backend in the list failed with a
// recoverable error.
var ErrExhausted = errors.New("ai: all backends exhausted")

// ErrFatal wraps a non-retryable failure; trying further backends would
// only repeat it.
var ErrFatal = errors.New("ai: fatal failure")

// Orchestrator walks an ordered backend list until one attempt succeeds.
// The list order is the sole priority signal; there is no reordering
// between or within calls.
type Orchestrator struct {
	backends []Backend
	attempts metrics.Counter
}

// NewOrchestrator requires at least one backend.
func NewOrchestrator(backends ...Backend) (*Orchestrator, error) {
	if len(backends) == 0 {
		return nil, errors.New("ai: backend list is empty")
	}
	return &Orchestrator{
		backends: backends,
		attempts: utils.NewCounter("ai.attempts"),
	}, nil
}

// Generate invokes the backends sequentially and returns the first
// usable payload. A fatal outcome short-circuits with ErrFatal; when
// every backend fails recoverably the result is ErrExhausted. Attempts
// are never issued in parallel, both to respect shared quotas and
// because only one response is needed.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (string, error) {
	run := uuid.NewString()[:8]
	for i, backend := range o.backends {
		o.attempts.Inc(1)
		utils.Logger.Printf("[%s] attempting %s (%d/%d)", run, backend.ID(), i+1, len(o.backends))

		out := backend.Invoke(ctx, req)
		switch out.Kind {
		case Succeeded:
			utils.Logger.Printf("[%s] %s succeeded", run, backend.ID())
			return out.Payload, nil
		case FatalFailure:
			return "", fmt.Errorf("%w: %s: %v", ErrFatal, backend.ID(), out.Reason)
		default:
			utils.Logger.Printf("[%s] %s failed (%s): %v", run, backend.ID(), out.Kind, out.Reason)
		}
	}
	return "", ErrExhausted
}
