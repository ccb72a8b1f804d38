package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/pilothq/sessiondock/internal/config"
)

// defaultCreateAttempts is the guardian's total attempt budget for the
// default session: the first try plus exactly one retry.
const defaultCreateAttempts = 2

// Manager owns all session state for the process. It is safe for
// concurrent use; the engine's disconnect callbacks and caller-driven
// operations funnel through the same mutex-guarded retire path.
type Manager struct {
	mu             sync.Mutex
	reg            registry
	activeID       string
	defaultSession *Session

	// defaultID is computed once and stable for the manager's lifetime.
	defaultID string

	factory   Factory
	artifacts Purger
	slots     *semaphore.Weighted
}

// NewManager creates an empty manager. maxSessions caps concurrently
// open sessions; values below one fall back to a cap of one.
func NewManager(factory Factory, artifacts Purger, maxSessions int64) *Manager {
	if maxSessions < 1 {
		maxSessions = 1
	}
	defaultID := "default-" + uuid.NewString()
	return &Manager{
		reg:       newRegistry(),
		activeID:  defaultID,
		defaultID: defaultID,
		factory:   factory,
		artifacts: artifacts,
		slots:     semaphore.NewWeighted(maxSessions),
	}
}

// DefaultID returns the reserved id of the privileged default session.
func (m *Manager) DefaultID() string { return m.defaultID }

// Active returns the current active-session pointer. Always defined.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// SetActive points session-less calls at id. The write is rejected
// (logged, pointer unchanged) unless id is the default id or a key
// currently present in the registry.
func (m *Manager) SetActive(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != m.defaultID {
		if _, ok := m.reg.get(id); !ok {
			log.Printf("session: refusing to activate unknown session %s, keeping %s", id, m.activeID)
			return
		}
	}
	m.activeID = id
}

// Create provisions a new session under the given internal id, wires up
// disconnect reconciliation, applies best-effort user-agent and cookie
// preconfiguration, and registers the record as the active session. An
// empty id gets a generated one.
func (m *Manager) Create(ctx context.Context, id string, cfg *config.Config, opts CreateOptions) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}

	if !cfg.HasCredentials() {
		log.Printf("session: create %s rejected: provisioning credentials missing", id)
		return nil, fmt.Errorf("create session %s: %w", id, ErrMissingCredentials)
	}

	// A record already registered under this id is replaced, never
	// silently overwritten: its handle is closed and its slot freed
	// before the new session takes the id over.
	m.mu.Lock()
	prior, hadPrior := m.reg.get(id)
	m.mu.Unlock()
	if hadPrior {
		log.Printf("session: create %s: retiring existing record before replacement", id)
		m.closeSession(ctx, prior)
		m.retire(prior)
	}

	if !m.slots.TryAcquire(1) {
		log.Printf("session: create %s rejected: session limit reached", id)
		return nil, fmt.Errorf("create session %s: %w", id, ErrSessionLimit)
	}

	handle, err := m.factory.Provision(ctx, cfg, ProvisionRequest{
		SessionID:        id,
		ResumeExternalID: opts.ResumeExternalID,
	})
	if err != nil {
		m.slots.Release(1)
		log.Printf("session: create %s failed at provisioning: %v", id, err)
		return nil, &CreateError{SessionID: id, Stage: StageProvision, Err: err}
	}

	conn := handle.Connection()
	if conn == nil {
		m.abortCreation(ctx, id, handle)
		log.Printf("session: create %s failed: no browser connection in provisioned handle", id)
		return nil, &CreateError{SessionID: id, Stage: StageEngine, Err: errors.New("no browser connection in provisioned handle")}
	}

	page, err := handle.Page()
	if err != nil {
		m.abortCreation(ctx, id, handle)
		log.Printf("session: create %s failed to acquire a page: %v", id, err)
		return nil, &CreateError{SessionID: id, Stage: StageEngine, Err: err}
	}

	sess := &Session{
		ID:         id,
		ExternalID: handle.ExternalID(),
		Conn:       conn,
		Page:       page,
		CreatedAt:  time.Now(),
		handle:     handle,
		slotHeld:   true,
	}

	// The listener is the only path reconciling engine-initiated
	// disconnects with local state. retire is idempotent, so racing an
	// explicit close is safe.
	conn.OnDisconnected(func() {
		log.Printf("session: engine disconnected for session %s (external %s)", sess.ID, sess.ExternalID)
		m.retire(sess)
	})

	if ua := firstNonEmpty(opts.UserAgent, cfg.UserAgent); ua != "" {
		m.applyUserAgent(sess, ua)
	}

	if len(cfg.Cookies) > 0 {
		if err := page.AddCookies(cfg.Cookies); err != nil {
			log.Printf("session: cookie injection failed for session %s: %v", id, err)
		}
	}

	m.mu.Lock()
	if sess.retired {
		// Disconnect fired before the record was stored. Nothing was
		// registered, so creation simply fails.
		m.mu.Unlock()
		m.closeSession(ctx, sess)
		log.Printf("session: create %s failed: browser disconnected during creation", id)
		return nil, &CreateError{SessionID: id, Stage: StageEngine, Err: errors.New("browser disconnected during creation")}
	}
	m.reg.put(id, sess)
	if id == m.defaultID {
		m.defaultSession = sess
	}
	m.activeID = id
	m.mu.Unlock()

	log.Printf("session: created %s (external %s)", id, sess.ExternalID)
	return sess, nil
}

// GetSession resolves the record tool handlers should use. An empty id
// means the default session. For the default id with createIfMissing,
// acquisition failures degrade to nil rather than an error; stale
// non-default records are retired and nil is returned, never recreated.
func (m *Manager) GetSession(ctx context.Context, id string, cfg *config.Config, createIfMissing bool) *Session {
	if id == "" {
		id = m.defaultID
	}

	if id == m.defaultID && createIfMissing {
		sess, err := m.ensureDefault(ctx, cfg)
		if err != nil {
			log.Printf("session: %v", err)
			return nil
		}
		return sess
	}

	m.mu.Lock()
	sess, ok := m.reg.get(id)
	if !ok {
		m.mu.Unlock()
		return nil
	}
	if sess.Live() {
		m.activeID = id
		m.mu.Unlock()
		return sess
	}
	m.mu.Unlock()

	log.Printf("session: %s is stale, retiring", id)
	m.closeSession(ctx, sess)
	m.retire(sess)
	return nil
}

// ensureDefault is the guardian over the default record: a live record
// is returned as-is (no provisioning cost), a stale one is torn down
// first, and creation gets exactly one retry unless the failure cannot
// succeed on retry.
func (m *Manager) ensureDefault(ctx context.Context, cfg *config.Config) (*Session, error) {
	m.mu.Lock()
	sess := m.defaultSession
	if sess != nil && sess.Live() {
		m.activeID = m.defaultID
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	if sess != nil {
		log.Printf("session: default session %s is stale, recreating", m.defaultID)
		m.closeSession(ctx, sess)
		m.retire(sess)
	}

	var lastErr error
	for attempt := 1; attempt <= defaultCreateAttempts; attempt++ {
		created, err := m.Create(ctx, m.defaultID, cfg, CreateOptions{})
		if err == nil {
			return created, nil
		}
		lastErr = err
		if errors.Is(err, ErrMissingCredentials) {
			return nil, &DefaultSessionError{Attempts: attempt, Err: lastErr}
		}
		if attempt < defaultCreateAttempts {
			log.Printf("session: default session creation failed (attempt %d): %v, retrying", attempt, err)
		}
	}
	return nil, &DefaultSessionError{Attempts: defaultCreateAttempts, Err: lastErr}
}

// Cleanup closes the record under id if present and reconciles registry,
// default reference and active pointer. Calling it twice is a no-op the
// second time.
func (m *Manager) Cleanup(ctx context.Context, id string) {
	m.mu.Lock()
	sess, ok := m.reg.get(id)
	m.mu.Unlock()

	if ok {
		m.closeSession(ctx, sess)
		m.retire(sess)
		return
	}

	// Already gone: still reconcile the pointer and default reference.
	m.mu.Lock()
	if m.activeID == id {
		m.activeID = m.defaultID
	}
	if id == m.defaultID {
		m.defaultSession = nil
	}
	m.mu.Unlock()
}

// CloseAll closes every registered session concurrently, isolating
// per-record failures, then resets the default reference and the active
// pointer. The registry is re-snapshotted until empty so that sessions
// registered while a sweep is in flight are closed too, never dropped
// with their handles open.
func (m *Manager) CloseAll(ctx context.Context) {
	closed := 0
	for {
		m.mu.Lock()
		records := m.reg.all()
		m.mu.Unlock()
		if len(records) == 0 {
			break
		}

		var wg sync.WaitGroup
		for _, sess := range records {
			wg.Add(1)
			go func(s *Session) {
				defer wg.Done()
				m.closeSession(ctx, s)
			}(sess)
		}
		wg.Wait()

		// retire removes each record from the registry.
		for _, sess := range records {
			m.retire(sess)
		}
		closed += len(records)
	}

	m.mu.Lock()
	m.defaultSession = nil
	m.activeID = m.defaultID
	m.mu.Unlock()

	log.Printf("session: closed all sessions (%d)", closed)
}

// Shutdown tears down all sessions. Alias kept for lifecycle symmetry
// with NewManager.
func (m *Manager) Shutdown(ctx context.Context) {
	m.CloseAll(ctx)
}

// Sessions returns a snapshot of all registered sessions.
func (m *Manager) Sessions() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]Info, 0, len(m.reg.records))
	for id, sess := range m.reg.records {
		infos = append(infos, Info{
			ID:         id,
			ExternalID: sess.ExternalID,
			URL:        sess.Page.URL(),
			Live:       sess.Live(),
			Active:     id == m.activeID,
			Default:    id == m.defaultID,
			CreatedAt:  sess.CreatedAt,
		})
	}
	return infos
}

// Info is the read-only view of a session exposed to the HTTP surface.
type Info struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"externalId"`
	URL        string    `json:"url"`
	Live       bool      `json:"live"`
	Active     bool      `json:"active"`
	Default    bool      `json:"default"`
	CreatedAt  time.Time `json:"createdAt"`
}

// retire removes a record from registry/default/pointer state and purges
// its artifacts. Safe to call any number of times and from any goroutine;
// the first call wins.
func (m *Manager) retire(sess *Session) {
	m.mu.Lock()
	if sess.retired {
		m.mu.Unlock()
		return
	}
	sess.retired = true
	cur, ok := m.reg.get(sess.ID)
	if ok && cur == sess {
		m.reg.remove(sess.ID)
	}
	if m.defaultSession == sess {
		m.defaultSession = nil
	}
	// Reset the pointer only if it targeted this record; a newer record
	// stored under the same id keeps it.
	if m.activeID == sess.ID && (!ok || cur == sess) {
		m.activeID = m.defaultID
	}
	if sess.slotHeld {
		sess.slotHeld = false
		m.slots.Release(1)
	}
	m.mu.Unlock()

	if m.artifacts != nil {
		m.artifacts.Purge(sess.ID)
		m.artifacts.Purge(sess.ExternalID)
	}
}

// closeSession shuts one session down gracefully. Failures are logged,
// never propagated: a close failure must not block caller cleanup.
func (m *Manager) closeSession(ctx context.Context, sess *Session) {
	if err := sess.handle.Close(ctx); err != nil {
		log.Printf("session: close failed for session %s (external %s): %v", sess.ID, sess.ExternalID, err)
	}
}

// abortCreation unwinds a creation that failed before a record existed.
func (m *Manager) abortCreation(ctx context.Context, id string, handle Handle) {
	if err := handle.Close(ctx); err != nil {
		log.Printf("session: close of aborted session %s failed: %v", id, err)
	}
	m.slots.Release(1)
}

// applyUserAgent overrides the session's user agent via two independent
// techniques. At least one landing is good enough; both failing is
// logged and non-fatal to the session.
func (m *Manager) applyUserAgent(sess *Session, ua string) {
	headerErr := sess.Page.SetExtraHTTPHeaders(map[string]string{"User-Agent": ua})
	script := fmt.Sprintf("Object.defineProperty(navigator, 'userAgent', { get: () => %q });", ua)
	scriptErr := sess.Page.AddInitScript(script)

	if headerErr != nil && scriptErr != nil {
		log.Printf("session: user agent override failed for session %s: header: %v; script: %v", sess.ID, headerErr, scriptErr)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
