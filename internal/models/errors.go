package models

import "errors"

var (
	// ErrInvalidConfig wraps every project validation failure.
	ErrInvalidConfig = errors.New("invalid project config")
	// ErrNameCollision is returned when two tasks sanitize to the same identifier.
	ErrNameCollision = errors.New("task name collision")
)
