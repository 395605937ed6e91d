package internal

import (
	"errors"
	"fmt"
	"strings"
)

// Workflow and input errors.
var (
	// ErrMissingCredential indicates no API key is configured; no call was attempted.
	ErrMissingCredential = errors.New("API key is required")

	// ErrInvalidInput indicates an empty or too short transcript or topic; no call was attempted.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyResponse indicates the model answered without any content.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrBusy indicates another remote call is still in flight.
	ErrBusy = errors.New("a request is already in progress")

	// ErrInvalidStep indicates the intent is not available in the current step.
	ErrInvalidStep = errors.New("action not available in the current step")

	// ErrWorkflowReset indicates the workflow was reset while the call was running.
	ErrWorkflowReset = errors.New("workflow was reset before the request finished")
)

// Remote endpoint failures, classified at the SDK boundary.
var (
	// ErrRateLimit indicates the API rate limit was exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the account quota or billing limit was reached.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates the request timed out or the server was unavailable.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates the API key was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates any other client error.
	ErrBadRequest = errors.New("bad request")
)

// RemoteCallError reports a failed call to the model endpoint
type RemoteCallError struct {
	Op  string
	Err error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s: remote call failed: %v", e.Op, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// ParseError reports a model response that is not valid JSON or lacks required fields
type ParseError struct {
	Op      string
	Missing []string
	Err     error
}

func (e *ParseError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: response is missing required fields: %s", e.Op, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s: parsing response: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// invalidInput wraps ErrInvalidInput with a description of the problem
func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// IsCallError reports whether err comes from an attempted remote call
func IsCallError(err error) bool {
	var remoteErr *RemoteCallError
	var parseErr *ParseError
	return errors.As(err, &remoteErr) || errors.As(err, &parseErr) || errors.Is(err, ErrEmptyResponse)
}
