// Package engine abstracts the browser-automation engine behind the
// narrow set of capabilities the session lifecycle manager consumes:
// connection liveness, disconnect notification, page state, header and
// init-script overrides, cookie injection, and screenshot capture.
//
// The production implementation adapts playwright-go; tests substitute
// in-memory fakes.
package engine

// Connection is one live browser connection owned by a session record.
type Connection interface {
	// IsConnected reports whether the underlying transport is still up.
	IsConnected() bool

	// OnDisconnected registers a handler invoked once when the engine
	// reports the connection gone. The handler may run on an engine
	// goroutine.
	OnDisconnected(func())

	// Close disconnects from the browser.
	Close() error
}

// Page is the primary interactive surface within a connection.
type Page interface {
	IsClosed() bool
	URL() string

	// SetExtraHTTPHeaders overrides headers on every request the page
	// issues. Used for the header half of a user-agent override.
	SetExtraHTTPHeaders(headers map[string]string) error

	// AddInitScript injects a script evaluated before any page script.
	// Used for the navigator-property half of a user-agent override.
	AddInitScript(script string) error

	// AddCookies injects cookies into the page's browsing context.
	AddCookies(cookies []Cookie) error

	// Screenshot captures the current viewport as PNG bytes.
	Screenshot() ([]byte, error)
}

// Cookie mirrors the subset of cookie fields callers preconfigure.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	URL      string  `json:"url,omitempty"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}
