package httpmw

import "net/http"

// MaxJSONBody returns middleware that limits the request body size for
// JSON requests (adapted from shield.MaxFormBody, generalized from
// form-encoded bodies to this API's application/json surface).
func MaxJSONBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
