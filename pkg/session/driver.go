package session

import (
	"context"
	"time"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/config"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/cookie"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
)

// Keys accepted by Page.Press
const (
	KeyEscape = "Escape"
	KeyEnter  = "Enter"
	KeyEnd    = "End"
)

// Page is the single tab a session drives. Selector-based methods wait for
// the element up to the page's operation timeout.
type Page interface {
	// Navigate loads url and returns once the DOM content is loaded
	Navigate(ctx context.Context, url string) error
	// Reload reloads the current document and waits for its DOM content
	Reload(ctx context.Context) error
	// WaitIdle waits until the network has been quiet, at most timeout
	WaitIdle(ctx context.Context, timeout time.Duration) error
	// Info returns the current URL and title
	Info(ctx context.Context) (url, title string, err error)
	// Eval runs a JS function expression and returns its result as JSON
	Eval(ctx context.Context, js string, args ...interface{}) ([]byte, error)

	Has(ctx context.Context, selector string) (bool, error)
	Count(ctx context.Context, selector string) (int, error)
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string) error
	Hover(ctx context.Context, selector string) error
	ScrollIntoView(ctx context.Context, selector string) error
	Text(ctx context.Context, selector string) (string, error)
	Attribute(ctx context.Context, selector, name string) (string, error)
	// Type focuses selector and types text one character at a time. An empty
	// selector types into whatever element has focus.
	Type(ctx context.Context, selector, text string, delay time.Duration) error
	Press(ctx context.Context, key string) error
	SetFiles(ctx context.Context, selector string, paths []string) error

	Close() error
}

// Browser owns the browser process and its cookie jar
type Browser interface {
	// NewPage opens a page with the stealth identity applied
	NewPage(ctx context.Context) (Page, error)
	Cookies(ctx context.Context) ([]cookie.Record, error)
	SetCookies(ctx context.Context, records []cookie.Record) error
	Close() error
}

// Launcher starts a browser for a session
type Launcher func(ctx context.Context, cfg config.BrowserConfig, log logger.Logger) (Browser, error)
