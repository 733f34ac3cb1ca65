package model

import (
	"errors"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

var ErrIncompleteClaims = errors.New("token claims are incomplete")

// TokenClaims is the decoded body of both access and refresh tokens.
type TokenClaims struct {
	SessionClaims
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// Validate is invoked by the jwt parser after the registered claims pass, so
// a token missing identity fields never verifies.
func (c TokenClaims) Validate() error {
	if strings.TrimSpace(c.Email) == "" || strings.TrimSpace(c.UserID) == "" {
		return ErrIncompleteClaims
	}
	if c.Kind != TokenKindAccess && c.Kind != TokenKindRefresh {
		return ErrIncompleteClaims
	}
	if c.ExpiresAt == nil {
		return ErrIncompleteClaims
	}
	return nil
}

func (c SessionClaims) RoleList() []string {
	if c.Roles == "" {
		return nil
	}
	return strings.Split(c.Roles, RoleSeparator)
}

func (c SessionClaims) IsAdmin() bool {
	return slices.Contains(c.RoleList(), RoleAdmin)
}
