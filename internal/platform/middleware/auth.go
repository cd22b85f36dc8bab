package middleware

import (
	"log/slog"
	"net/http"

	dErrors "smp/pkg/domain-errors"
	"smp/pkg/platform/httputil"
	"smp/pkg/requestcontext"
)

// RequireBasicAuth rejects requests without HTTP Basic credentials.
// Verifying the credentials is left to the service layer.
func RequireBasicAuth(realm string, logger *slog.Logger) func(http.Handler) http.Handler {
	challenge := `Basic realm="` + realm + `", charset="UTF-8"`
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, _, ok := r.BasicAuth(); ok && user != "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			logger.WarnContext(ctx, "unauthorized access - missing basic credentials",
				"request_id", requestcontext.RequestID(ctx),
				"path", r.URL.Path,
			)
			w.Header().Set("WWW-Authenticate", challenge)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
		})
	}
}
