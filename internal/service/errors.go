package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized is returned when the caller lacks the required identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrGatewayDisabled is returned when an AI gateway has no configured client.
	ErrGatewayDisabled = errors.New("gateway not configured")
	// ErrEmptyCompletion is returned when the model produced no content.
	ErrEmptyCompletion = errors.New("empty completion")
)

// ValidationError reports rejected input. Fields maps a field path such as
// "tasks[1].priority" to the reason it was rejected.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func newValidationError(message string) *ValidationError {
	return &ValidationError{Message: message, Fields: map[string]string{}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

func (e *ValidationError) add(field, reason string) {
	e.Fields[field] = reason
}

// err returns nil when no field was rejected.
func (e *ValidationError) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// AIGatewayError wraps a failed call to an external AI provider.
type AIGatewayError struct {
	Gateway  string
	Provider string
	Err      error
}

func (e *AIGatewayError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("%s gateway: %v", e.Gateway, e.Err)
	}
	return fmt.Sprintf("%s gateway (%s): %v", e.Gateway, e.Provider, e.Err)
}

func (e *AIGatewayError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsGateway reports whether err is an AIGatewayError.
func IsGateway(err error) bool {
	var gerr *AIGatewayError
	return errors.As(err, &gerr)
}
