// Package session coordinates the lifecycle of remote browser-automation
// sessions: a registry of live records keyed by internal id, an
// active-session pointer for session-less calls, a privileged default
// session that is recreated on demand, and teardown that reconciles
// registry, pointer and artifact state on every exit path.
package session

import (
	"context"
	"time"

	"github.com/pilothq/sessiondock/internal/config"
	"github.com/pilothq/sessiondock/internal/engine"
)

// Session is one live remote browser connection. The record is the sole
// owner of its engine handle until teardown.
type Session struct {
	// ID is the internal id, the registry key.
	ID string

	// ExternalID is assigned by the provisioning service. Used for
	// observability and as the secondary artifact-purge key.
	ExternalID string

	// Conn is the engine's browser connection.
	Conn engine.Connection

	// Page is the primary interactive surface.
	Page engine.Page

	CreatedAt time.Time

	// handle performs graceful shutdown against the provisioner.
	handle Handle

	// retired and slotHeld are guarded by the manager's mutex. retired
	// makes teardown idempotent across the disconnect listener and
	// explicit cleanup.
	retired  bool
	slotHeld bool
}

// Live reports whether the record is still usable. A record is stale the
// instant its connection drops or its page closes.
func (s *Session) Live() bool {
	return s.Conn != nil && s.Conn.IsConnected() && s.Page != nil && !s.Page.IsClosed()
}

// Handle is what the provisioning collaborator returns: access to the
// engine connection and primary page plus a graceful close.
type Handle interface {
	// ExternalID is the provisioning service's id for this session.
	ExternalID() string

	// Connection returns the engine browser connection, or nil if none
	// was obtained.
	Connection() engine.Connection

	// Page returns the primary page, creating one if the browser came
	// up without any.
	Page() (engine.Page, error)

	// Close shuts the session down gracefully on the engine and, best
	// effort, on the provisioning service.
	Close(ctx context.Context) error
}

// Factory reaches the remote provisioning service. It is the only path
// by which browser instances are allocated or resumed.
type Factory interface {
	Provision(ctx context.Context, cfg *config.Config, req ProvisionRequest) (Handle, error)
}

// ProvisionRequest carries what the provisioner needs per session.
type ProvisionRequest struct {
	// SessionID is the internal id, passed along for traceability.
	SessionID string

	// ResumeExternalID, when set, resumes an existing remote session
	// instead of allocating a new one.
	ResumeExternalID string
}

// Purger is the artifact-store collaborator notified on teardown.
type Purger interface {
	Purge(sessionID string) int
}

// CreateOptions are the per-call knobs of session creation.
type CreateOptions struct {
	ResumeExternalID string

	// UserAgent overrides the config-level user agent for this session.
	UserAgent string
}

// registry maps internal id to record. The manager retires any prior
// record before reusing an id.
type registry struct {
	records map[string]*Session
}

func newRegistry() registry {
	return registry{records: make(map[string]*Session)}
}

func (r registry) put(id string, s *Session) { r.records[id] = s }

func (r registry) get(id string) (*Session, bool) {
	s, ok := r.records[id]
	return s, ok
}

func (r registry) remove(id string) { delete(r.records, id) }

func (r registry) all() []*Session {
	out := make([]*Session, 0, len(r.records))
	for _, s := range r.records {
		out = append(out, s)
	}
	return out
}
