package model

import "errors"

var (
	ErrValidation        = errors.New("validation error") // 400
	ErrOrderNotFound     = errors.New("order not found")  // 404
	ErrOrderConflict     = errors.New("order conflict")   // 409
	ErrSessionActive     = errors.New("checkout session already active")
	ErrInvalidTransition = errors.New("invalid state transition")
)
