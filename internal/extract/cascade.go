package extract

import (
	"context"
	"fmt"
	"log/slog"
)

// Cascade tries each strategy in order until one produces the clip file.
type Cascade struct {
	Strategies []Strategy
	Logger     *slog.Logger
}

// Run walks the tiers for one clip. A skip or a failure falls through to the
// next tier; an authentication challenge aborts immediately because no tier
// can recover from it. When every tier is spent the last failure is wrapped
// in ErrAllStrategiesFailed.
func (c *Cascade) Run(ctx context.Context, job *Job) (string, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var lastErr error
	for _, strategy := range c.Strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		logger.Info("trying download strategy", "clip", job.ClipName, "strategy", strategy.Name())

		out := strategy.Attempt(ctx, job)
		switch {
		case out.Succeeded():
			logger.Info("strategy succeeded", "clip", job.ClipName, "strategy", strategy.Name())
			return out.File, nil
		case out.Skipped():
			logger.Info("strategy skipped", "clip", job.ClipName, "strategy", strategy.Name(), "reason", out.SkipReason)
		default:
			if IsAuthChallenge(out.Err) {
				return "", fmt.Errorf("%s strategy: %w: %w", strategy.Name(), ErrAuthChallenge, out.Err)
			}
			logger.Warn("strategy failed", "clip", job.ClipName, "strategy", strategy.Name(), "error", out.Err)
			lastErr = out.Err
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("%w: last error: %w", ErrAllStrategiesFailed, lastErr)
	}
	return "", ErrAllStrategiesFailed
}
