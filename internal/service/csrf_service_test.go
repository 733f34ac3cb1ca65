package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"marketplates/internal/model"
	"marketplates/pkg/apierror"
)

func csrfFixture(t *testing.T) (*fixture, string) {
	t.Helper()

	f := newFixture(t, nil)
	f.addUser(t, "u1", "owner@example.com")
	return f, f.login(t, "owner@example.com").AccessToken
}

func TestCSRFIssueStoresPayloadAndIV(t *testing.T) {
	t.Parallel()

	f, session := csrfFixture(t)

	token, err := f.csrf.Issue(context.Background(), session)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	u, err := f.repo.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, u.CSRFTokenKey, 32)

	parts := strings.SplitN(u.CSRFToken, "-", 3)
	require.Len(t, parts, 3)
	require.Len(t, parts[0], 32)
	require.Equal(t, "secret-u1", parts[2])
}

func TestCSRFVerifySucceedsOncePerIssue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f, session := csrfFixture(t)

	token, err := f.csrf.Issue(ctx, session)
	require.NoError(t, err)

	require.NoError(t, f.csrf.Verify(ctx, session, token))
	require.ErrorIs(t, f.csrf.Verify(ctx, session, token), apierror.CSRFMismatch())
}

func TestCSRFOlderIssueIsRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f, session := csrfFixture(t)

	first, err := f.csrf.Issue(ctx, session)
	require.NoError(t, err)
	second, err := f.csrf.Issue(ctx, session)
	require.NoError(t, err)

	require.ErrorIs(t, f.csrf.Verify(ctx, session, first), apierror.CSRFMismatch())
	require.NoError(t, f.csrf.Verify(ctx, session, second))
}

func TestCSRFTamperedCiphertextFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f, session := csrfFixture(t)

	token, err := f.csrf.Issue(ctx, session)
	require.NoError(t, err)

	replacement := byte('A')
	if token[0] == 'A' {
		replacement = 'B'
	}
	tampered := string(replacement) + token[1:]

	require.ErrorIs(t, f.csrf.Verify(ctx, session, tampered), apierror.CSRFMismatch())

	// The failed attempt does not consume the genuine token.
	require.NoError(t, f.csrf.Verify(ctx, session, token))
}

func TestCSRFVerifyRejections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f, session := csrfFixture(t)
	f.addUser(t, "u2", "other@example.com")
	other := f.login(t, "other@example.com").AccessToken

	token, err := f.csrf.Issue(ctx, session)
	require.NoError(t, err)

	tests := []struct {
		name      string
		session   string
		submitted string
	}{
		{name: "no session", session: "", submitted: token},
		{name: "empty token", session: session, submitted: ""},
		{name: "not base64", session: session, submitted: "%%%"},
		{name: "token of another user", session: other, submitted: token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, f.csrf.Verify(ctx, tt.session, tt.submitted), apierror.CSRFMismatch())
		})
	}
}

func TestCSRFIssueRequiresSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.csrf.Issue(context.Background(), "garbage")
	require.ErrorIs(t, err, apierror.Unexpected())

	token, err := f.tokens.Issue(model.TokenKindAccess, model.User{ID: "deleted", Email: "gone@example.com"})
	require.NoError(t, err)
	_, err = f.csrf.Issue(context.Background(), token)
	require.ErrorIs(t, err, apierror.Unexpected())
}
