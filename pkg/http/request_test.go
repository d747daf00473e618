package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/nexus/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP_ResolutionOrder(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name: "forwarded-for wins over everything",
			headers: map[string]string{
				"X-Forwarded-For":  "203.0.113.42, 10.0.0.5",
				"X-Real-IP":        "198.51.100.7",
				"CF-Connecting-IP": "192.0.2.1",
			},
			want: "203.0.113.42",
		},
		{
			name: "real-ip when no forwarded-for",
			headers: map[string]string{
				"X-Real-IP":        "198.51.100.7",
				"CF-Connecting-IP": "192.0.2.1",
			},
			want: "198.51.100.7",
		},
		{
			name:    "cloudflare header last",
			headers: map[string]string{"CF-Connecting-IP": "192.0.2.1"},
			want:    "192.0.2.1",
		},
		{
			name:    "whitespace trimmed from first forwarded entry",
			headers: map[string]string{"X-Forwarded-For": "  2001:db8::1 ,10.0.0.1"},
			want:    "2001:db8::1",
		},
		{
			name:    "empty first forwarded entry falls through",
			headers: map[string]string{"X-Forwarded-For": " , 10.0.0.1", "X-Real-IP": "198.51.100.7"},
			want:    "198.51.100.7",
		},
		{
			name:    "no headers",
			headers: nil,
			want:    "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, pkghttp.ExtractClientIP(req))
		})
	}
}

func TestExtractClientIP_IgnoresRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"

	assert.Equal(t, pkghttp.UnknownClientIP, pkghttp.ExtractClientIP(req))
}
