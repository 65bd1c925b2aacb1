package model

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindGateway        Kind = "gateway"
	KindNetwork        Kind = "network"
	KindSerialization  Kind = "serialization"
	KindCanceled       Kind = "canceled"
	KindInternal       Kind = "internal"
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthenticationError halts a flow before any payment call is made.
type AuthenticationError struct {
	Step   string
	Status AuthenticationStatus
	Reason string
	Raw    map[string]any
	Err    error
}

func (e *AuthenticationError) Error() string {
	msg := fmt.Sprintf("%s: authentication not successful", e.Step)
	if e.Status != "" {
		msg += fmt.Sprintf(" (status %s)", e.Status)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// GatewayError is a response with HTTP status >= 400.
type GatewayError struct {
	Step       string
	Gateway    string
	HTTPStatus int
	Message    string
	RawBody    []byte
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s responded %d: %s", e.Step, e.Gateway, e.HTTPStatus, e.Message)
}

// NetworkError covers connection, TLS and timeout failures.
type NetworkError struct {
	Step    string
	Gateway string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s unreachable: %v", e.Step, e.Gateway, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SerializationError is raised when a request cannot be encoded or a response
// is not valid JSON.
type SerializationError struct {
	Step    string
	RawBody []byte
	Err     error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s: serialization: %v", e.Step, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// KindOf classifies err for callers that only need the failure category.
func KindOf(err error) Kind {
	var (
		validation     *ValidationError
		authentication *AuthenticationError
		gateway        *GatewayError
		network        *NetworkError
		serialization  *SerializationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &authentication):
		return KindAuthentication
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &gateway):
		return KindGateway
	case errors.As(err, &network):
		return KindNetwork
	case errors.As(err, &serialization):
		return KindSerialization
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
