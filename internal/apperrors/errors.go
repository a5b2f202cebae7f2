// Package apperrors defines the coded error taxonomy returned by every API operation.
//
// Each Error carries a namespaced code (e.g. "CART_001") that callers can branch on and
// the HTTP status it maps to. Errors compare equal under errors.Is when their codes match.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeValidation      = "VALIDATION_001"
	CodeInvalidID       = "VALIDATION_008"
	CodeAuthRequired    = "AUTH_004"
	CodeCourseNotFound  = "COURSE_001"
	CodeNotEnrolled     = "COURSE_002"
	CodeAlreadyEnrolled = "COURSE_003"
	CodeCourseFull      = "COURSE_004"
	CodeLessonNotFound  = "LESSON_001"
	CodeAlreadyInCart   = "CART_001"
	CodeCartItemMissing = "CART_002"
	CodeCartEmpty       = "CART_003"
	CodePaymentDeclined = "PAYMENT_001"
	CodePaymentFailed   = "PAYMENT_002"
	CodeRateLimited     = "RATE_LIMIT_001"
	CodeUnavailable     = "SERVICE_001"
	CodeInternal        = "INTERNAL_001"
)

var statusByCode = map[string]int{
	CodeValidation:      http.StatusBadRequest,
	CodeInvalidID:       http.StatusBadRequest,
	CodeAuthRequired:    http.StatusUnauthorized,
	CodeCourseNotFound:  http.StatusNotFound,
	CodeNotEnrolled:     http.StatusForbidden,
	CodeAlreadyEnrolled: http.StatusConflict,
	CodeCourseFull:      http.StatusConflict,
	CodeLessonNotFound:  http.StatusNotFound,
	CodeAlreadyInCart:   http.StatusConflict,
	CodeCartItemMissing: http.StatusNotFound,
	CodeCartEmpty:       http.StatusConflict,
	CodePaymentDeclined: http.StatusPaymentRequired,
	CodePaymentFailed:   http.StatusBadGateway,
	CodeRateLimited:     http.StatusTooManyRequests,
	CodeUnavailable:     http.StatusServiceUnavailable,
	CodeInternal:        http.StatusInternalServerError,
}

// Error is a coded API error
type Error struct {
	Code    string
	Message string
	Details any
	Err     error
}

// New creates an error with the given code and message
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Status returns the HTTP status mapped to the error code
func (e *Error) Status() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithDetails returns a copy of the error carrying details
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// As extracts an *Error from err's chain
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of err, or CodeInternal for uncoded errors
func CodeOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// Validation reports malformed or out-of-range input
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// InvalidID reports a path identifier that is not a UUID
func InvalidID(field string) *Error {
	return New(CodeInvalidID, fmt.Sprintf("invalid %s format", field)).
		WithDetails(map[string]string{"field": field})
}

// AuthRequired reports a missing or invalid bearer token
func AuthRequired(message string) *Error {
	return New(CodeAuthRequired, message)
}

// CourseNotFound reports an unknown course
func CourseNotFound() *Error {
	return New(CodeCourseNotFound, "course not found")
}

// NotEnrolled reports access to a course the caller does not own
func NotEnrolled() *Error {
	return New(CodeNotEnrolled, "not enrolled in this course")
}

// AlreadyEnrolled reports an owned course
func AlreadyEnrolled() *Error {
	return New(CodeAlreadyEnrolled, "already enrolled in this course")
}

// CourseFull reports a course whose enrollment capacity is exhausted
func CourseFull() *Error {
	return New(CodeCourseFull, "course has reached its enrollment limit")
}

// LessonNotFound reports a lesson that is not part of the course
func LessonNotFound() *Error {
	return New(CodeLessonNotFound, "lesson not found")
}

// AlreadyInCart reports a duplicate cart entry
func AlreadyInCart() *Error {
	return New(CodeAlreadyInCart, "course already in cart")
}

// CartItemNotFound reports an unknown cart item
func CartItemNotFound() *Error {
	return New(CodeCartItemMissing, "cart item not found")
}

// CartEmpty reports checkout of an empty cart
func CartEmpty() *Error {
	return New(CodeCartEmpty, "cart is empty")
}

// PaymentDeclined reports a payment rejected by the gateway
func PaymentDeclined(reason string) *Error {
	return New(CodePaymentDeclined, "payment declined").WithDetails(map[string]string{"reason": reason})
}

// PaymentFailed reports a gateway that could not be reached
func PaymentFailed(err error) *Error {
	return &Error{Code: CodePaymentFailed, Message: "payment gateway unavailable", Err: err}
}

// Unavailable reports a dependency that failed its health check
func Unavailable(details any) *Error {
	return New(CodeUnavailable, "service unavailable").WithDetails(details)
}

// Internal wraps an unexpected failure
func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal server error", Err: err}
}
