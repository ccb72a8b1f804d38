package engine

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightConnection adapts a playwright Browser to Connection.
type PlaywrightConnection struct {
	browser playwright.Browser
}

// NewPlaywrightConnection wraps an already-connected playwright browser.
func NewPlaywrightConnection(browser playwright.Browser) *PlaywrightConnection {
	return &PlaywrightConnection{browser: browser}
}

func (c *PlaywrightConnection) IsConnected() bool {
	return c.browser.IsConnected()
}

func (c *PlaywrightConnection) OnDisconnected(fn func()) {
	c.browser.OnDisconnected(func(playwright.Browser) {
		fn()
	})
}

func (c *PlaywrightConnection) Close() error {
	return c.browser.Close()
}

// PlaywrightPage adapts a playwright Page to Page.
type PlaywrightPage struct {
	page playwright.Page
}

// NewPlaywrightPage wraps a playwright page.
func NewPlaywrightPage(page playwright.Page) *PlaywrightPage {
	return &PlaywrightPage{page: page}
}

func (p *PlaywrightPage) IsClosed() bool {
	return p.page.IsClosed()
}

func (p *PlaywrightPage) URL() string {
	return p.page.URL()
}

func (p *PlaywrightPage) SetExtraHTTPHeaders(headers map[string]string) error {
	return p.page.SetExtraHTTPHeaders(headers)
}

func (p *PlaywrightPage) AddInitScript(script string) error {
	return p.page.AddInitScript(playwright.Script{Content: playwright.String(script)})
}

func (p *PlaywrightPage) AddCookies(cookies []Cookie) error {
	converted := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		cookie := playwright.OptionalCookie{
			Name:  c.Name,
			Value: c.Value,
		}
		if c.URL != "" {
			cookie.URL = playwright.String(c.URL)
		}
		if c.Domain != "" {
			cookie.Domain = playwright.String(c.Domain)
		}
		if c.Path != "" {
			cookie.Path = playwright.String(c.Path)
		}
		if c.Expires != 0 {
			cookie.Expires = playwright.Float(c.Expires)
		}
		if c.HTTPOnly {
			cookie.HttpOnly = playwright.Bool(true)
		}
		if c.Secure {
			cookie.Secure = playwright.Bool(true)
		}
		converted = append(converted, cookie)
	}

	return p.page.Context().AddCookies(converted)
}

func (p *PlaywrightPage) Screenshot() ([]byte, error) {
	data, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}
