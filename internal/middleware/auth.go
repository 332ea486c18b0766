package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/tonsurance/hedgeplane/internal/security"
	"go.uber.org/zap"
)

// ProtectedPrefix declares one (path-prefix, methods) pair the auth
// middleware guards, per spec §4.1 ("the caller declares a list of
// (path-prefix, methods) pairs that are protected").
type ProtectedPrefix struct {
	Prefix      string
	Methods     []string // empty means all methods
	RequireAdmin bool
}

type authCtxKey struct{}

// ContextWithAuth stores the resolved ApiKeyInfo for downstream handlers.
func ContextWithAuth(ctx context.Context, info *security.ApiKeyInfo) context.Context {
	return context.WithValue(ctx, authCtxKey{}, info)
}

// AuthFromContext retrieves the ApiKeyInfo resolved by the Auth middleware, if any.
func AuthFromContext(ctx context.Context) (*security.ApiKeyInfo, bool) {
	info, ok := ctx.Value(authCtxKey{}).(*security.ApiKeyInfo)

	return info, ok
}

// Auth returns a Huma middleware enforcing bearer-key authentication and
// scope checks on the declared protected prefixes (spec §4.1). Requests
// outside every protected prefix pass through untouched.
func Auth(api huma.API, repo security.Repository, protected []ProtectedPrefix, logger *zap.Logger) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		path := operationPath(ctx)

		match, ok := matchProtected(path, ctx.Method(), protected)
		if !ok {
			next(ctx)

			return
		}

		authz := ctx.Header("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "missing or malformed Authorization header")

			return
		}

		rawKey := strings.TrimPrefix(authz, "Bearer ")

		info, err := security.Authenticate(ctx.Context(), repo, rawKey, time.Now())
		if err != nil {
			logger.Warn("authentication failed", zap.String("path", path), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid, revoked, or expired api key")

			return
		}

		wantScope := security.ScopeWrite
		if match.RequireAdmin {
			wantScope = security.ScopeAdmin
		}

		if !security.Has(info.Scopes, wantScope) && !security.Has(info.Scopes, security.ScopeAdmin) {
			_ = huma.WriteErr(api, ctx, http.StatusForbidden, "api key lacks required scope")

			return
		}

		newCtx := ContextWithAuth(ctx.Context(), info)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}

func matchProtected(path, method string, protected []ProtectedPrefix) (ProtectedPrefix, bool) {
	for _, p := range protected {
		if !strings.HasPrefix(path, p.Prefix) {
			continue
		}

		if len(p.Methods) == 0 {
			return p, true
		}

		for _, m := range p.Methods {
			if strings.EqualFold(m, method) {
				return p, true
			}
		}
	}

	return ProtectedPrefix{}, false
}

func operationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ctx.URL().Path
}
