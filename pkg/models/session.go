package models

import "time"

// SessionStatus is the state of a remote browser session as reported
// by the provisioning service.
type SessionStatus string

const (
	StatusRunning   SessionStatus = "RUNNING"
	StatusCompleted SessionStatus = "COMPLETED"
	StatusError     SessionStatus = "ERROR"
	StatusTimedOut  SessionStatus = "TIMED_OUT"
)

// Session is the provisioning service's view of a browser instance.
// Its ID is the external session id; the lifecycle manager keys its own
// registry by internal id and keeps both for observability and purges.
type Session struct {
	ID         string        `json:"id"`
	ProjectID  string        `json:"projectId"`
	Status     SessionStatus `json:"status"`
	Region     string        `json:"region,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	ExpiresAt  time.Time     `json:"expiresAt"`
	ConnectURL string        `json:"connectUrl"`
}

// CreateSessionRequest is the payload sent to the provisioning service
// when allocating a new browser instance.
type CreateSessionRequest struct {
	ProjectID string `json:"projectId"`
	KeepAlive bool   `json:"keepAlive,omitempty"`
	Timeout   int    `json:"timeout,omitempty"`
}

// ReleaseSessionRequest asks the provisioning service to end a session
// that was created with keep-alive.
type ReleaseSessionRequest struct {
	ProjectID string        `json:"projectId"`
	Status    SessionStatus `json:"status"`
}
