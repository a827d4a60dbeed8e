package services

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse means the upstream answered 2xx with a body
	// that does not have the expected shape.
	ErrMalformedResponse = errors.New("malformed upstream response")
	// ErrNoGeneratedText means the response had the expected shape but
	// carried no generated text field.
	ErrNoGeneratedText = errors.New("upstream response has no generated text")
)

// UpstreamError is a non-2xx answer from a model endpoint.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }
