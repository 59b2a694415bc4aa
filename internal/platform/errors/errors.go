package apperrors

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrDaemonRunning     = errors.New("daemon already running")
	ErrDaemonUnreachable = errors.New("daemon unreachable")
)
