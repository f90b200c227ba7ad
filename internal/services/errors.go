package services

import "errors"

var (
	errEmptyRequest = errors.New("request_text is required")
	errNoUserTurns  = errors.New("conversation has no user turns")
)
