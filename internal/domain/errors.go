package domain

import "errors"

var (
	ErrKeyNotFound       = errors.New("API key not found")
	ErrInvalidAPIKey     = errors.New("invalid API key")
	ErrUserNotFound      = errors.New("user not found")
	ErrFoodNotFound      = errors.New("food not found")
	ErrOverloaded        = errors.New("maximum concurrent requests exceeded")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)
