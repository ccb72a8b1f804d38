package session

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is returned when session creation is attempted
// without provisioning credentials. It is never worth retrying.
var ErrMissingCredentials = errors.New("provisioning credentials missing (api key and project id required)")

// ErrSessionLimit is returned when the concurrent-session cap is hit.
var ErrSessionLimit = errors.New("concurrent session limit reached")

// CreateStage identifies which step of session creation failed.
type CreateStage string

const (
	// StageProvision covers the remote provisioning call.
	StageProvision CreateStage = "provision"

	// StageEngine covers extraction of the engine connection and page
	// from the provisioned handle.
	StageEngine CreateStage = "engine"
)

// CreateError wraps a failure during session creation with the internal
// session id and the stage that failed.
type CreateError struct {
	SessionID string
	Stage     CreateStage
	Err       error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("create session %s: %s: %v", e.SessionID, e.Stage, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

// DefaultSessionError is returned when the default session could not be
// established within the guardian's retry budget.
type DefaultSessionError struct {
	Attempts int
	Err      error
}

func (e *DefaultSessionError) Error() string {
	return fmt.Sprintf("default session unavailable after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *DefaultSessionError) Unwrap() error { return e.Err }
