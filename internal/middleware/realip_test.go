package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRealIP(t *testing.T) {
	t.Parallel()

	trusted := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.10/32"),
	}

	tests := []struct {
		name       string
		trusted    []netip.Prefix
		remoteAddr string
		forwarded  string
		realIP     string
		want       string
	}{
		{name: "no trusted proxies ignores headers", remoteAddr: "203.0.113.5:1000", forwarded: "198.51.100.1", want: "203.0.113.5"},
		{name: "untrusted peer ignores headers", trusted: trusted, remoteAddr: "203.0.113.5:1000", forwarded: "198.51.100.1", want: "203.0.113.5"},
		{name: "trusted peer uses forwarded client", trusted: trusted, remoteAddr: "10.0.0.2:1000", forwarded: "198.51.100.1", want: "198.51.100.1"},
		{name: "rightmost untrusted hop wins", trusted: trusted, remoteAddr: "10.0.0.2:1000", forwarded: "192.0.2.1, 198.51.100.1, 192.168.1.10", want: "198.51.100.1"},
		{name: "all hops trusted uses leftmost", trusted: trusted, remoteAddr: "10.0.0.2:1000", forwarded: "10.9.9.9, 192.168.1.10", want: "10.9.9.9"},
		{name: "malformed hop keeps peer", trusted: trusted, remoteAddr: "10.0.0.2:1000", forwarded: "nonsense", want: "10.0.0.2"},
		{name: "real ip header from trusted peer", trusted: trusted, remoteAddr: "10.0.0.2:1000", realIP: "198.51.100.7", want: "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got string
			handler := RealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClientIP(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}
