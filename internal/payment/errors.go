package payment

import (
	"errors"
	"fmt"
)

var (
	// ErrIntentNotFound is returned when the gateway does not know the payment reference.
	ErrIntentNotFound = errors.New("payment intent not found")

	// ErrGateway is the category of every other gateway failure.
	ErrGateway = errors.New("payment gateway error")
)

// GatewayError carries the upstream status and message of a failed gateway call.
type GatewayError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	switch {
	case e.StatusCode > 0 && e.Code != "":
		return fmt.Sprintf("payment gateway error (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("payment gateway error (status %d): %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("payment gateway error: %s", e.Message)
	}
}

// Unwrap lets errors.Is match ErrGateway as well as any underlying cause.
func (e *GatewayError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrGateway, e.Err}
	}
	return []error{ErrGateway}
}

// NewGatewayError creates a GatewayError.
func NewGatewayError(status int, code, message string, err error) *GatewayError {
	return &GatewayError{StatusCode: status, Code: code, Message: message, Err: err}
}
