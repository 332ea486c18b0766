package middleware

import "net/http"

// SizeCap returns a raw net/http (chi-compatible) middleware that rejects
// request bodies larger than maxBytes, per spec §4.1 (default 10 MiB).
//
// huma has no hook to swap a request's body reader once its own handler
// has taken over, so draining the body inside a huma middleware (as an
// earlier version of this did) leaves nothing for huma's own body
// unmarshaling step to read. The library's documented recipe is to wrap
// r.Body with http.MaxBytesReader at the raw net/http layer, ahead of
// huma entirely, so this must be registered on the chi router directly
// (router.Use, not api.UseMiddleware) before any route is added.
func SizeCap(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
