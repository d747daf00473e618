package middleware

import (
	"net/http"
	"time"

	"github.com/BradenHooton/nexus/internal/auth"
	pkghttp "github.com/BradenHooton/nexus/pkg/http"
	"github.com/go-chi/httprate"
)

// AdminActionLimit throttles state-changing admin actions per acting user.
// It must run after the guard has put the user in context; requests without
// one are keyed by client IP.
func AdminActionLimit(perMinute int) func(next http.Handler) http.Handler {
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if user := auth.GetUserFromContext(r); user != nil {
				return "admin:" + user.ID, nil
			}
			return "ip:" + pkghttp.ExtractClientIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many administrative actions, please slow down")
		}),
	)
}
