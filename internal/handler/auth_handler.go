package handler

import (
	"net/http"
	"time"

	"marketplates/internal/middleware"
	"marketplates/internal/model"
	"marketplates/internal/service"
)

type AuthHandler struct {
	service *service.AuthService
	cookie  cookieSettings
}

func NewAuthHandler(service *service.AuthService, cookieMaxAge time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{service: service, cookie: cookieSettings{maxAge: cookieMaxAge, secure: secureCookie}}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), service.LoginInput{
		Email:               payload.LoginData.Email,
		Password:            payload.LoginData.Password,
		CaptchaToken:        payload.CaptchaToken,
		RemoteIP:            middleware.ClientIP(r),
		ExistingAccessToken: sessionToken(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookie.set(w, result.AccessToken)
	writeJSON(w, http.StatusOK, model.LoginResponse{
		Success:      true,
		Message:      "Logged in successfully",
		RefreshToken: result.RefreshToken,
	})
}

// Logout always answers 204, whatever the body holds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var payload model.RefreshRequest
	_ = decodeJSON(r, &payload)

	h.service.Logout(r.Context(), payload.RefreshToken)

	h.cookie.clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) CheckSession(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if _, err := h.service.CheckSession(token); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.SessionResponse{Cookie: token})
}

func (h *AuthHandler) AccessToken(w http.ResponseWriter, r *http.Request) {
	var payload model.RefreshRequest
	_ = decodeJSON(r, &payload)

	access, err := h.service.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookie.set(w, access)
	writeJSON(w, http.StatusOK, model.AccessTokenResponse{NewAccessToken: access})
}
