package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies a content store failure for callers. The HTTP layer and the
// build job branch on codes, never on message text.
type ErrorCode string

const (
	// CodeValidation: the input metadata, lesson body or artifact payload is malformed.
	CodeValidation ErrorCode = "validation"
	// CodeNotFound: the curriculum or lesson does not exist (or was deleted mid-build).
	CodeNotFound ErrorCode = "not_found"
	// CodeConflict: a status CAS lost, the body was already attached, or another build
	// holds the curriculum.
	CodeConflict ErrorCode = "conflict"
	// CodeInvariantViolation: a write would break tree shape, such as mixed artifact
	// kinds or a simulation with the wrong segment count.
	CodeInvariantViolation ErrorCode = "invariant_violation"
	// CodePreconditionFailed: a referenced row is missing at write time.
	CodePreconditionFailed ErrorCode = "precondition_failed"
	// CodeStorageUnavailable: the database could not be reached or dropped the connection.
	CodeStorageUnavailable ErrorCode = "storage_unavailable"
	// CodeGeneration: the model produced nothing usable for an artifact.
	CodeGeneration ErrorCode = "generation"
	// CodeRetryable: the write lost a lock or serialization race and can run again.
	CodeRetryable ErrorCode = "retryable"
	CodeInternal  ErrorCode = "internal"
)

// Error carries a code and the store operation that produced it.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Cause != nil {
		msg = strings.TrimSpace(e.Cause.Error())
	}
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap tags err with code. The message comes from the cause.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, "", err)
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code && code != ""
}

// CodeOf returns the code of the outermost *Error in err's chain, or "" when there is none.
func CodeOf(err error) ErrorCode {
	var storeErr *Error
	if !errors.As(err, &storeErr) {
		return ""
	}
	return storeErr.Code
}

// Retryable reports whether the same store call may succeed if issued again unchanged.
// A lost CAS (CodeConflict) is not retryable: the caller must reload state first.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeRetryable, CodeStorageUnavailable:
		return true
	default:
		return false
	}
}
