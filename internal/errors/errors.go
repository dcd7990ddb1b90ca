// Package errors holds the sentinel errors and error types shared by the
// bot's packages. Callers match them with the standard errors.Is and
// errors.As.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInput marks input rejected by a parser or validator.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownPayload marks a callback payload with an unrecognized tag.
	ErrUnknownPayload = errors.New("unknown callback payload")

	// ErrPayloadTooLong marks an encoded callback payload over the
	// Telegram callback_data ceiling.
	ErrPayloadTooLong = errors.New("callback payload too long")

	// ErrBadSignature marks a contact token whose HMAC does not verify.
	ErrBadSignature = errors.New("bad signature")

	// ErrBadToken marks a contact token that cannot be decoded at all.
	ErrBadToken = errors.New("bad token")

	// ErrNotConfigured marks an optional integration without credentials.
	ErrNotConfigured = errors.New("not configured")
)

// DeliveryError is a failed outbound Bot API call. StatusCode is the
// Telegram error_code, or 0 when the request never got an answer.
type DeliveryError struct {
	Method     string
	StatusCode int
	Err        error
}

func NewDeliveryError(method string, statusCode int, err error) *DeliveryError {
	return &DeliveryError{Method: method, StatusCode: statusCode, Err: err}
}

func (e *DeliveryError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("telegram %s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("telegram %s (%d): %v", e.Method, e.StatusCode, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Rejected reports whether Telegram answered and refused the call.
// Retrying a rejected call with the same arguments fails again.
func (e *DeliveryError) Rejected() bool {
	return e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError &&
		e.StatusCode != http.StatusTooManyRequests
}
