package httpapi

import (
	"context"
	"net/http"
	"time"
)

// serverBaseCtx is canceled on shutdown so long-running handlers stop with
// the process. Defaults to Background.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called to release the goroutine when handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// workContext derives the context for engine work done on behalf of r. It
// ends on shutdown, on client disconnect, or after limit when limit > 0.
func workContext(r *http.Request, limit time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	if limit <= 0 {
		return ctx, cancel
	}
	tctx, tcancel := context.WithTimeout(ctx, limit)
	return tctx, func() {
		tcancel()
		cancel()
	}
}
