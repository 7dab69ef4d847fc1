package reasoning

import (
	"context"
	"log/slog"
)

// WithFallback wraps an LLM reasoner so that any error falls back to the
// deterministic rule-based analyzer (spec.md §4.3: "Reasoning failure
// falls back to the deterministic rule-based analyzer").
type WithFallback struct {
	primary  Reasoner
	fallback Reasoner
	logger   *slog.Logger
}

// NewWithFallback constructs a Reasoner that tries primary first.
func NewWithFallback(primary, fallback Reasoner, logger *slog.Logger) *WithFallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &WithFallback{primary: primary, fallback: fallback, logger: logger}
}

func (w *WithFallback) Reason(ctx context.Context, in Input) (Output, error) {
	out, err := w.primary.Reason(ctx, in)
	if err == nil {
		return out, nil
	}
	w.logger.Warn("reasoning: primary reasoner failed, using fallback", "error", err)
	return w.fallback.Reason(ctx, in)
}
