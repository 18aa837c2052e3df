package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"elog/internal/httputil"
)

// Recovery turns handler panics into RFC 7807 responses instead of torn
// connections. The panic value and stack always go to the log; the value
// is echoed in the response detail only in debug mode, production clients
// get a generic message.
func Recovery(logger *slog.Logger, debugMode bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				logger.Error("panic recovered",
					"error", rec,
					"path", r.URL.Path,
					"method", r.Method,
					"stack", string(debug.Stack()),
				)

				detail := "internal server error"
				if debugMode {
					detail = fmt.Sprintf("panic: %v", rec)
				}
				httputil.RespondError(w, http.StatusInternalServerError, detail)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
