package obs

import (
	"context"
	"log/slog"
	"time"
)

type ctxKey string

// InvocationIDKey carries the per-run id through the pipeline stages.
const InvocationIDKey ctxKey = "invocation_id"

// Time logs the duration of an operation when the returned func runs,
// including the error if the operation set one:
//
//	defer obs.Time(ctx, "cluster.kmeans")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	id, _ := ctx.Value(InvocationIDKey).(string)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			slog.Error("op failed", "invocation_id", id, "op", name, "dur_ms", dur.Milliseconds(), "err", *errp)
			return
		}
		slog.Info("op done", "invocation_id", id, "op", name, "dur_ms", dur.Milliseconds())
	}
}
