package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplates/internal/middleware"
	"marketplates/internal/model"
)

func TestRegisterUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	router := env.userRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/users", model.RegisterRequest{
		Email:    "chef@example.com",
		Password: "long enough",
		Name:     "Chef",
		Type:     []string{model.RoleRestaurant},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Success bool             `json:"success"`
		Data    model.PublicUser `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, []string{model.RoleRestaurant}, body.Data.Type)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/users", model.RegisterRequest{
		Email:    "chef@example.com",
		Password: "long enough",
		Name:     "Chef again",
	}))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/users", model.RegisterRequest{Email: "x"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserAccessRules(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addUser(t, "owner", "owner@example.com", model.RoleUser)
	env.addUser(t, "other", "other@example.com", model.RoleShop)
	env.addUser(t, "root", "root@example.com", model.RoleAdmin)
	router := env.userRouter()

	otherSession, _ := env.login(t, "other@example.com")
	rootSession, _ := env.login(t, "root@example.com")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/owner", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/users/owner", nil), otherSession))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := withSession(httptest.NewRequest(http.MethodDelete, "/users/owner", nil), otherSession)
	req.Header.Set(middleware.CSRFHeader, env.issueCSRF(t, otherSession))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = withSession(httptest.NewRequest(http.MethodDelete, "/users/owner", nil), rootSession)
	req.Header.Set(middleware.CSRFHeader, env.issueCSRF(t, rootSession))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/users/owner", nil), rootSession))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
