// Package sessiontest provides in-memory Browser and Page fakes for tests of
// code built on a session.
package sessiontest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/config"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/cookie"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/session"
)

// Page is a scriptable fake page. Selectors are present when Elements holds a
// positive count for them.
type Page struct {
	mu sync.Mutex

	URL   string
	Title string

	// OnNavigate runs after each navigation, e.g. to simulate a redirect
	OnNavigate func(p *Page, url string)
	// EvalFunc answers scripts; its result is returned JSON-encoded
	EvalFunc func(js string, args []interface{}) (interface{}, error)
	// OnReload runs after each reload
	OnReload func(p *Page)
	// OnClick runs after a successful click
	OnClick func(p *Page, selector string)

	Elements   map[string]int
	Texts      map[string]string
	Attributes map[string]string

	Navigations []string
	Reloads     int
	Evals       []string
	Clicks      []string
	Hovers      []string
	Scrolled    []string
	// Typed collects text per selector; "" holds text typed into the focus
	Typed       map[string]string
	Pressed     []string
	Files       map[string][]string
	Closed      bool
}

// NewPage returns an empty fake page at about:blank
func NewPage() *Page {
	return &Page{
		URL:        "about:blank",
		Elements:   map[string]int{},
		Texts:      map[string]string{},
		Attributes: map[string]string{},
		Typed:      map[string]string{},
		Files:      map[string][]string{},
	}
}

// SetElement sets how many elements match selector
func (p *Page) SetElement(selector string, count int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Elements[selector] = count
}

func (p *Page) present(selector string) bool {
	return p.Elements[selector] > 0
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.Navigations = append(p.Navigations, url)
	p.URL = url
	hook := p.OnNavigate
	p.mu.Unlock()

	if hook != nil {
		hook(p, url)
	}
	return nil
}

func (p *Page) Reload(ctx context.Context) error {
	p.mu.Lock()
	p.Reloads++
	hook := p.OnReload
	p.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return nil
}

func (p *Page) WaitIdle(ctx context.Context, timeout time.Duration) error {
	return nil
}

func (p *Page) Info(ctx context.Context) (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.URL, p.Title, nil
}

func (p *Page) Eval(ctx context.Context, js string, args ...interface{}) ([]byte, error) {
	p.mu.Lock()
	p.Evals = append(p.Evals, js)
	fn := p.EvalFunc
	p.mu.Unlock()

	var result interface{}
	if fn != nil {
		v, err := fn(js, args)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return json.Marshal(result)
}

func (p *Page) Has(ctx context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.present(selector), nil
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Elements[selector], nil
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.present(selector) {
		return fmt.Errorf("element %q not visible", selector)
	}
	return nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	if !p.present(selector) {
		p.mu.Unlock()
		return fmt.Errorf("element %q not found", selector)
	}
	p.Clicks = append(p.Clicks, selector)
	hook := p.OnClick
	p.mu.Unlock()

	if hook != nil {
		hook(p, selector)
	}
	return nil
}

func (p *Page) Hover(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.present(selector) {
		return fmt.Errorf("element %q not found", selector)
	}
	p.Hovers = append(p.Hovers, selector)
	return nil
}

func (p *Page) ScrollIntoView(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.present(selector) {
		return fmt.Errorf("element %q not found", selector)
	}
	p.Scrolled = append(p.Scrolled, selector)
	return nil
}

func (p *Page) Text(ctx context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.present(selector) {
		return "", fmt.Errorf("element %q not found", selector)
	}
	return p.Texts[selector], nil
}

func (p *Page) Attribute(ctx context.Context, selector, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.present(selector) {
		return "", fmt.Errorf("element %q not found", selector)
	}
	return p.Attributes[selector+"@"+name], nil
}

func (p *Page) Type(ctx context.Context, selector, text string, delay time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if selector != "" && !p.present(selector) {
		return fmt.Errorf("element %q not found", selector)
	}
	p.Typed[selector] += text
	return nil
}

func (p *Page) Press(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Pressed = append(p.Pressed, key)
	return nil
}

func (p *Page) SetFiles(ctx context.Context, selector string, paths []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.present(selector) {
		return fmt.Errorf("element %q not found", selector)
	}
	p.Files[selector] = append([]string(nil), paths...)
	return nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

// Browser is a fake browser with an in-memory cookie jar and a single page
type Browser struct {
	mu sync.Mutex

	Jar        []cookie.Record
	SetCalls   int
	Page       *Page
	NewPageErr error
	CloseCalls int
}

// NewBrowser returns a fake browser serving page
func NewBrowser(page *Page) *Browser {
	return &Browser{Page: page}
}

// Launcher returns a session.Launcher that always yields b
func (b *Browser) Launcher() session.Launcher {
	return func(ctx context.Context, cfg config.BrowserConfig, log logger.Logger) (session.Browser, error) {
		return b, nil
	}
}

func (b *Browser) NewPage(ctx context.Context) (session.Page, error) {
	if b.NewPageErr != nil {
		return nil, b.NewPageErr
	}
	return b.Page, nil
}

func (b *Browser) Cookies(ctx context.Context) ([]cookie.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]cookie.Record(nil), b.Jar...), nil
}

func (b *Browser) SetCookies(ctx context.Context, records []cookie.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.SetCalls++
	b.Jar = append(b.Jar, records...)
	return nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CloseCalls++
	return nil
}

// NoSleep is a session.WithSleep replacement that returns at once
func NoSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

var _ session.Page = (*Page)(nil)
var _ session.Browser = (*Browser)(nil)
