package middleware

import (
	"context"
	"net/http"
	"strings"
)

const (
	CSRFHeader    = "X-CSRF-Token"
	CSRFFormField = "csrfToken"
)

type csrfVerifier interface {
	Verify(ctx context.Context, accessToken string, submitted string) error
}

type CSRFMiddleware struct {
	verifier csrfVerifier
}

func NewCSRFMiddleware(verifier csrfVerifier) *CSRFMiddleware {
	return &CSRFMiddleware{verifier: verifier}
}

// Protect rejects mutating requests whose CSRF token does not match the one
// last issued to the session owner.
func (m *CSRFMiddleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		submitted := strings.TrimSpace(r.Header.Get(CSRFHeader))
		if submitted == "" && isForm(r) {
			submitted = r.PostFormValue(CSRFFormField)
		}

		if err := m.verifier.Verify(r.Context(), AccessToken(r), submitted); err != nil {
			writeError(w, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isForm(r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	return strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data")
}
