package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pilothq/sessiondock/internal/artifacts"
	"github.com/pilothq/sessiondock/internal/config"
	"github.com/pilothq/sessiondock/internal/session"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	mgr   *session.Manager
	store *artifacts.Store
	cfg   *config.Config
}

// NewHandler creates the HTTP handler set.
func NewHandler(mgr *session.Manager, store *artifacts.Store, cfg *config.Config) *Handler {
	return &Handler{mgr: mgr, store: store, cfg: cfg}
}

type createSessionRequest struct {
	ID               string `json:"id,omitempty"`
	ResumeExternalID string `json:"resumeExternalId,omitempty"`
	UserAgent        string `json:"userAgent,omitempty"`
}

type sessionResponse struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"externalId"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CreateSession handles POST /v1/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	sess, err := h.mgr.Create(r.Context(), req.ID, h.cfg, session.CreateOptions{
		ResumeExternalID: req.ResumeExternalID,
		UserAgent:        req.UserAgent,
	})
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, session.ErrMissingCredentials):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, session.ErrSessionLimit):
			status = http.StatusTooManyRequests
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		ID:         sess.ID,
		ExternalID: sess.ExternalID,
		URL:        sess.Page.URL(),
		CreatedAt:  sess.CreatedAt,
	})
}

// ListSessions handles GET /v1/sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.Sessions())
}

// GetSession handles GET /v1/sessions/{id}. Looking up a stale session
// retires it and reads as not found, same as the core contract.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	sess := h.mgr.GetSession(r.Context(), id, h.cfg, false)
	if sess == nil {
		http.Error(w, fmt.Sprintf("session %s not found", id), http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		ID:         sess.ID,
		ExternalID: sess.ExternalID,
		URL:        sess.Page.URL(),
		CreatedAt:  sess.CreatedAt,
	})
}

// DeleteSession handles DELETE /v1/sessions/{id}. Deleting an unknown
// session still succeeds; cleanup is unconditional.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.mgr.Cleanup(r.Context(), mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// CloseAllSessions handles DELETE /v1/sessions.
func (h *Handler) CloseAllSessions(w http.ResponseWriter, r *http.Request) {
	h.mgr.CloseAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type activeResponse struct {
	ActiveSessionID string `json:"activeSessionId"`
	DefaultID       string `json:"defaultId"`
}

// GetActive handles GET /v1/active.
func (h *Handler) GetActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, activeResponse{
		ActiveSessionID: h.mgr.Active(),
		DefaultID:       h.mgr.DefaultID(),
	})
}

// SetActive handles PUT /v1/active. Pointing at an unknown session is
// ignored; the response carries whatever the pointer reads afterwards.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.mgr.SetActive(req.ID)
	writeJSON(w, http.StatusOK, activeResponse{
		ActiveSessionID: h.mgr.Active(),
		DefaultID:       h.mgr.DefaultID(),
	})
}

// Screenshot handles POST /v1/sessions/{id}/screenshot: captures the
// session's page, records the capture in the artifact store under the
// internal id, and returns the PNG.
func (h *Handler) Screenshot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	sess := h.mgr.GetSession(r.Context(), id, h.cfg, false)
	if sess == nil {
		http.Error(w, fmt.Sprintf("session %s not found", id), http.StatusNotFound)
		return
	}

	data, err := sess.Page.Screenshot()
	if err != nil {
		http.Error(w, fmt.Sprintf("screenshot of session %s failed: %v", id, err), http.StatusBadGateway)
		return
	}

	name := fmt.Sprintf("screenshot-%d.png", time.Now().UnixMilli())
	h.store.Add(sess.ID, artifacts.Artifact{
		Name:        name,
		ContentType: "image/png",
		Data:        data,
	})

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Artifact-Name", name)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ListArtifacts handles GET /v1/sessions/{id}/artifacts. Artifacts may
// outlive staleness checks, so this reads the store directly.
func (h *Handler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.List(mux.Vars(r)["id"]))
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
