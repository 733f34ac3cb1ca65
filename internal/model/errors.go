package model

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrCSRFNotConsumed means the stored CSRF payload changed between
	// read and conditional clear.
	ErrCSRFNotConsumed = errors.New("csrf payload not consumed")

	ErrInvalidInput = errors.New("invalid input")
)
