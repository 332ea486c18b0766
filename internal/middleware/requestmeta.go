package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"
)

// RequestMetaInfo carries request identity derived once at the top of the
// middleware chain, read by downstream middlewares and handlers.
type RequestMetaInfo struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

type requestMetaCtxKey struct{}

// ContextWithRequestMeta stores meta on ctx.
func ContextWithRequestMeta(ctx context.Context, meta RequestMetaInfo) context.Context {
	return context.WithValue(ctx, requestMetaCtxKey{}, meta)
}

// RequestMetaFromContext retrieves meta stored by ContextWithRequestMeta.
func RequestMetaFromContext(ctx context.Context) (RequestMetaInfo, bool) {
	meta, ok := ctx.Value(requestMetaCtxKey{}).(RequestMetaInfo)

	return meta, ok
}

// RequestMeta is the first middleware in the chain (spec §4.1's "logging"
// stage): it stashes client IP, user-agent, and referrer into the request
// context for downstream middlewares/handlers, then emits one zap log line
// per request with method, path, status, and latency once the rest of the
// chain has run.
func RequestMeta(logger *zap.Logger, _ huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()

		meta := RequestMetaInfo{
			ClientIP:  extractClientIP(ctx),
			UserAgent: ctx.Header("User-Agent"),
			Referrer:  ctx.Header("Referer"),
		}

		newCtx := ContextWithRequestMeta(ctx.Context(), meta)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)

		logger.Info("request",
			zap.String("method", ctx.Method()),
			zap.String("path", ctx.URL().Path),
			zap.Int("status", ctx.Status()),
			zap.String("client_ip", meta.ClientIP),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func extractClientIP(ctx huma.Context) string {
	// Check X-Forwarded-For first (may contain multiple IPs)
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		// Take the first IP (original client)
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP
	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to remote addr
	host := ctx.RemoteAddr()
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		return host[:idx]
	}

	return host
}
