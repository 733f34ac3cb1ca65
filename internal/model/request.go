package model

type LoginData struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	LoginData    LoginData `json:"loginData"`
	CaptchaToken string    `json:"captchaToken"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RegisterRequest struct {
	Email    string   `json:"email" validate:"required,email,max=254"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	Name     string   `json:"name" validate:"required,max=120"`
	Type     []string `json:"type" validate:"omitempty,dive,oneof=Restaurant Shop Admin User"`
}

type UpdateUserRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=1,max=120"`
	Password *string  `json:"password" validate:"omitempty,min=8,max=72"`
	Type     []string `json:"type" validate:"omitempty,dive,oneof=Restaurant Shop Admin User"`
}
