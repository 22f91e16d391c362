// Package apperror defines the application error taxonomy shared by services and handlers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindBadRequest
	KindDuplicate
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindRateLimited
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError carries a kind, a client-safe message and an optional cause.
type AppError struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the kind to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindValidation, KindBadRequest, KindDuplicate:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Code is the machine readable error identifier placed in response envelopes.
func (e *AppError) Code() string {
	switch e.Kind {
	case KindValidation, KindBadRequest:
		return "validation_error"
	case KindDuplicate:
		return "duplicate"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal_error"
	}
}

func New(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func NewValidation(message string, fields ...FieldError) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Fields: fields}
}

func NewBadRequest(message string) *AppError {
	return New(KindBadRequest, message, nil)
}

func NewDuplicate(message string, err error) *AppError {
	return New(KindDuplicate, message, err)
}

func NewUnauthorized(message string) *AppError {
	return New(KindUnauthorized, message, nil)
}

func NewForbidden(message string) *AppError {
	return New(KindForbidden, message, nil)
}

func NewNotFound(message string) *AppError {
	return New(KindNotFound, message, nil)
}

func NewRateLimited(message string) *AppError {
	return New(KindRateLimited, message, nil)
}

func NewInternal(message string, err error) *AppError {
	return New(KindInternal, message, err)
}

// From extracts an *AppError from err's chain. Unknown errors become internal errors.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal("Server Error", err)
}

// Is reports whether err carries an AppError of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
