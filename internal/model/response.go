package model

type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type LoginResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	RefreshToken string `json:"refreshToken"`
}

type AccessTokenResponse struct {
	NewAccessToken string `json:"newAccessToken"`
}

type SessionResponse struct {
	Cookie string `json:"cookie"`
}

type CSRFResponse struct {
	Token string `json:"token"`
}
