package http

import (
	"net/http"
	"strings"
)

// UnknownClientIP is the bucket used when no client address header is present.
const UnknownClientIP = "unknown"

// ExtractClientIP resolves the client address from proxy headers.
//
// Resolution order:
// 1. X-Forwarded-For (first entry)
// 2. X-Real-IP
// 3. CF-Connecting-IP
// 4. "unknown"
//
// Requests without any of these share the "unknown" bucket; RemoteAddr is
// deliberately not consulted so every instance behind the same proxy agrees.
func ExtractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if cf := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); cf != "" {
		return cf
	}

	return UnknownClientIP
}
