package assessment

import "errors"

var (
	ErrNotFound         = errors.New("assessment set not found")
	ErrTopicNotFound    = errors.New("topic not found")
	ErrAlreadyCompleted = errors.New("topic already completed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidID        = errors.New("invalid id format")
	ErrInvalidInput     = errors.New("invalid input")
)
