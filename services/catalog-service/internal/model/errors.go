package model

import (
	"errors"
	"fmt"
)

// Code classifies a domain error. Adapters translate codes, never messages.
type Code string

const (
	CodeValidation  Code = "VALIDATION_ERROR"
	CodeNotFound    Code = "NOT_FOUND"
	CodePersistence Code = "PERSISTENCE_ERROR"
	CodePublish     Code = "PUBLISH_ERROR"
)

// Error is the domain error carried from the store up to the adapters.
type Error struct {
	Code     Code
	Message  string
	Kind     Kind
	EntityID string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches by code, so errors.Is(err, ErrNotFound) holds for every not-found error.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

var (
	ErrValidation  = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrNotFound    = &Error{Code: CodeNotFound, Message: "not found"}
	ErrPersistence = &Error{Code: CodePersistence, Message: "persistence failed"}
	ErrPublish     = &Error{Code: CodePublish, Message: "publish failed"}
)

func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(kind Kind, id string) *Error {
	return &Error{Code: CodeNotFound, Message: NotFoundMessage(kind), Kind: kind, EntityID: id}
}

func Persistence(op string, cause error) *Error {
	return &Error{Code: CodePersistence, Message: op, Cause: cause}
}

func Publish(cause error) *Error {
	return &Error{Code: CodePublish, Message: "publish event", Cause: cause}
}

// CodeOf returns the code of the first domain error in err's chain, or "" for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
