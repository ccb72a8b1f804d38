// Package provision reaches the remote browser provisioning service:
// it allocates (or resumes) a session over the service's REST API, then
// attaches the automation engine to the returned CDP endpoint.
package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/pilothq/sessiondock/internal/config"
	"github.com/pilothq/sessiondock/internal/engine"
	"github.com/pilothq/sessiondock/internal/session"
	"github.com/pilothq/sessiondock/pkg/models"
)

const apiKeyHeader = "X-BB-API-Key"

// Client implements session.Factory against a Browserbase-compatible
// provisioning API.
type Client struct {
	httpClient *http.Client
	chromium   playwright.BrowserType
}

// NewClient creates a provisioning client driving browsers through the
// given playwright runtime.
func NewClient(pw *playwright.Playwright) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		chromium:   pw.Chromium,
	}
}

// Provision allocates or resumes a remote session and connects the
// engine over CDP.
func (c *Client) Provision(ctx context.Context, cfg *config.Config, req session.ProvisionRequest) (session.Handle, error) {
	var (
		remote *models.Session
		err    error
	)
	if req.ResumeExternalID != "" {
		remote, err = c.getSession(ctx, cfg, req.ResumeExternalID)
	} else {
		remote, err = c.createSession(ctx, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", req.SessionID, err)
	}

	if remote.Status != "" && remote.Status != models.StatusRunning {
		return nil, fmt.Errorf("session %s: remote session %s is %s, not RUNNING", req.SessionID, remote.ID, remote.Status)
	}

	browser, err := c.chromium.ConnectOverCDP(remote.ConnectURL)
	if err != nil {
		return nil, fmt.Errorf("session %s: connect to %s: %w", req.SessionID, remote.ID, err)
	}

	return &handle{
		remote:  remote,
		browser: browser,
		client:  c,
		cfg:     cfg,
	}, nil
}

func (c *Client) createSession(ctx context.Context, cfg *config.Config) (*models.Session, error) {
	payload := models.CreateSessionRequest{
		ProjectID: cfg.ProjectID,
	}
	var remote models.Session
	if err := c.do(ctx, cfg, http.MethodPost, cfg.APIURL+"/v1/sessions", payload, &remote); err != nil {
		return nil, fmt.Errorf("create remote session: %w", err)
	}
	return &remote, nil
}

func (c *Client) getSession(ctx context.Context, cfg *config.Config, externalID string) (*models.Session, error) {
	var remote models.Session
	if err := c.do(ctx, cfg, http.MethodGet, cfg.APIURL+"/v1/sessions/"+externalID, nil, &remote); err != nil {
		return nil, fmt.Errorf("resume remote session %s: %w", externalID, err)
	}
	return &remote, nil
}

func (c *Client) releaseSession(ctx context.Context, cfg *config.Config, externalID string) error {
	payload := models.ReleaseSessionRequest{
		ProjectID: cfg.ProjectID,
		Status:    models.StatusCompleted,
	}
	return c.do(ctx, cfg, http.MethodPost, cfg.APIURL+"/v1/sessions/"+externalID, payload, nil)
}

func (c *Client) do(ctx context.Context, cfg *config.Config, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(apiKeyHeader, cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, url, resp.StatusCode, bytes.TrimSpace(detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// handle owns one provisioned browser until the session manager tears
// it down.
type handle struct {
	remote  *models.Session
	browser playwright.Browser
	client  *Client
	cfg     *config.Config
}

func (h *handle) ExternalID() string { return h.remote.ID }

func (h *handle) Connection() engine.Connection {
	if h.browser == nil {
		return nil
	}
	return engine.NewPlaywrightConnection(h.browser)
}

// Page returns the first page of the first browser context, creating
// whichever is missing. Remote sessions normally come up with one of
// each already open.
func (h *handle) Page() (engine.Page, error) {
	contexts := h.browser.Contexts()
	var browserCtx playwright.BrowserContext
	if len(contexts) > 0 {
		browserCtx = contexts[0]
	} else {
		created, err := h.browser.NewContext()
		if err != nil {
			return nil, fmt.Errorf("create browser context: %w", err)
		}
		browserCtx = created
	}

	pages := browserCtx.Pages()
	if len(pages) > 0 {
		return engine.NewPlaywrightPage(pages[0]), nil
	}
	page, err := browserCtx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return engine.NewPlaywrightPage(page), nil
}

// Close disconnects the engine and asks the provisioner to release the
// remote session. The release is best effort; the engine disconnect is
// what actually ends browser work.
func (h *handle) Close(ctx context.Context) error {
	err := h.browser.Close()

	if releaseErr := h.client.releaseSession(ctx, h.cfg, h.remote.ID); releaseErr != nil {
		log.Printf("provision: release of remote session %s failed: %v", h.remote.ID, releaseErr)
	}

	if err != nil {
		return fmt.Errorf("close browser for remote session %s: %w", h.remote.ID, err)
	}
	return nil
}
