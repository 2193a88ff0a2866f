package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/rewind/internal/redux"
)

// Logger logs every dispatch with the state before and after the rest of
// the pipeline ran. A nil logger uses slog.Default().
func Logger[S any](logger *slog.Logger) Func[S] {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler[S]) Handler[S] {
		return func(ctx context.Context, state S, action redux.Action) (S, error) {
			label := redux.Label(action)
			start := time.Now()

			logger.DebugContext(ctx, "dispatch start", "action", label, "state", state)

			out, err := next(ctx, state, action)
			if err != nil {
				logger.WarnContext(ctx, "dispatch failed",
					"action", label,
					"duration", time.Since(start),
					"error", err,
				)
				return out, err
			}

			logger.InfoContext(ctx, "dispatch",
				"action", label,
				"before", state,
				"after", out,
				"duration", time.Since(start),
			)
			return out, nil
		}
	}
}
