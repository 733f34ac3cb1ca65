package model

import (
	"slices"
	"strings"
	"time"
)

const (
	RoleRestaurant = "Restaurant"
	RoleShop       = "Shop"
	RoleAdmin      = "Admin"
	RoleUser       = "User"
)

// RoleSeparator joins role tags inside token claims.
const RoleSeparator = "&"

type User struct {
	ID               string    `json:"id" bson:"_id"`
	Email            string    `json:"email" bson:"email"`
	Name             string    `json:"name" bson:"name"`
	PasswordHash     string    `json:"-" bson:"password"`
	Type             []string  `json:"type" bson:"type"`
	RefreshTokenList []string  `json:"-" bson:"refreshToken"`
	CSRFSecret       string    `json:"-" bson:"csrfSecret"`
	CSRFToken        string    `json:"-" bson:"csrfToken"`
	CSRFTokenKey     string    `json:"-" bson:"csrfTokenKey"`
	CreatedAt        time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updatedAt"`
}

// Roles returns the role tags joined the way they travel inside tokens.
func (u User) Roles() string {
	return strings.Join(u.Type, RoleSeparator)
}

func (u User) HasRefreshToken(token string) bool {
	return slices.Contains(u.RefreshTokenList, token)
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name, Type: u.Type}
}

type PublicUser struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Type  []string `json:"type"`
}

// SessionClaims is what both access and refresh tokens carry about a user.
type SessionClaims struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	UserID      string `json:"userId"`
	Roles       string `json:"type"`
}

func ClaimsForUser(u User) SessionClaims {
	return SessionClaims{
		Email:       u.Email,
		DisplayName: u.Name,
		UserID:      u.ID,
		Roles:       u.Roles(),
	}
}

func ValidRole(role string) bool {
	switch role {
	case RoleRestaurant, RoleShop, RoleAdmin, RoleUser:
		return true
	}
	return false
}
