package middleware

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// originAllowlist is the shared origin-matching logic behind both CORS (the
// huma middleware applied to real operations) and Preflight (the raw
// net/http handler for the dedicated OPTIONS route).
type originAllowlist struct {
	allowed  map[string]struct{}
	wildcard bool
}

func newOriginAllowlist(allowedOrigins []string) originAllowlist {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	_, wildcard := allowed["*"]

	return originAllowlist{allowed: allowed, wildcard: wildcard}
}

func (a originAllowlist) allows(origin string) bool {
	if a.wildcard {
		return true
	}

	_, ok := a.allowed[origin]

	return ok
}

// CORS returns a Huma middleware enforcing an origin allowlist (spec §4.1).
// A present Origin header not on the allowlist is rejected with 403;
// otherwise the standard CORS response headers are echoed back.
func CORS(api huma.API, allowedOrigins []string) func(ctx huma.Context, next func(huma.Context)) {
	allowlist := newOriginAllowlist(allowedOrigins)

	return func(ctx huma.Context, next func(huma.Context)) {
		origin := ctx.Header("Origin")

		if origin != "" {
			if !allowlist.allows(origin) {
				_ = huma.WriteErr(api, ctx, http.StatusForbidden, "origin not allowed")

				return
			}

			ctx.SetHeader("Access-Control-Allow-Origin", origin)
			ctx.SetHeader("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			ctx.SetHeader("Access-Control-Allow-Headers", "Content-Type, Authorization")
			ctx.SetHeader("Access-Control-Max-Age", "86400")
		}

		next(ctx)
	}
}

// Preflight returns a raw net/http handler for a dedicated catch-all OPTIONS
// route (spec §4.1: "returns 200 with only the CORS headers"), registered
// directly on the chi router so a browser's preflight request never has to
// match a real huma operation to get its CORS headers.
func Preflight(allowedOrigins []string) http.HandlerFunc {
	allowlist := newOriginAllowlist(allowedOrigins)

	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && allowlist.allows(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		w.WriteHeader(http.StatusOK)
	}
}
