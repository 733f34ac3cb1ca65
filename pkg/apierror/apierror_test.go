package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIErrorMatchesByCode(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("refresh: %w", TokenForbidden())

	require.ErrorIs(t, wrapped, TokenForbidden())
	require.NotErrorIs(t, wrapped, TokenExpired())

	var apiErr *APIError
	require.True(t, errors.As(wrapped, &apiErr))
	require.Equal(t, http.StatusForbidden, apiErr.HTTPStatus)
}

func TestTaxonomyStatuses(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err    *APIError
		status int
	}{
		"already authenticated": {AlreadyAuthenticated(), http.StatusForbidden},
		"user not found":        {UserNotFound(), http.StatusNotFound},
		"invalid credentials":   {InvalidCredentials(), http.StatusUnauthorized},
		"missing token":         {MissingToken(), http.StatusNotFound},
		"token expired":         {TokenExpired(), http.StatusForbidden},
		"token forbidden":       {TokenForbidden(), http.StatusForbidden},
		"csrf mismatch":         {CSRFMismatch(), http.StatusUnauthorized},
		"unexpected":            {Unexpected(), http.StatusInternalServerError},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.status, tc.err.HTTPStatus)
			require.NotEmpty(t, tc.err.Message)
		})
	}
}

func TestErrorString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "BAD_REQUEST: bad (field)", New(CodeBadRequest, "bad", "field", http.StatusBadRequest).Error())
	require.Equal(t, "BAD_REQUEST: bad", New(CodeBadRequest, "bad", "", http.StatusBadRequest).Error())

	var nilErr *APIError
	require.Equal(t, "", nilErr.Error())
}
