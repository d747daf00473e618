package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	pkghttp "github.com/BradenHooton/nexus/pkg/http"
	"github.com/go-chi/chi/v5/middleware"
)

// Recoverer turns a handler panic into the standard JSON 500 envelope and logs
// the panic with its stack.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					// net/http aborts the response silently on this sentinel.
					panic(rvr)
				}

				logger.Error("panic recovered",
					slog.Any("panic", rvr),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("stack", string(debug.Stack())),
				)

				if r.Header.Get("Connection") != "Upgrade" {
					pkghttp.WriteInternalError(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
