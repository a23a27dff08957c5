package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	rodstealth "github.com/go-rod/stealth"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/config"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/cookie"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/retry"
)

// identityScript runs before any page script on every document
const identityScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['zh-CN', 'zh', 'en'] });
Object.defineProperty(navigator, 'plugins', {
	get: () => [
		{ name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer' },
		{ name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai' },
		{ name: 'Native Client', filename: 'internal-nacl-plugin' },
	],
});
window.chrome = window.chrome || { runtime: {} };
(() => {
	const patch = (proto) => {
		const getParameter = proto.getParameter;
		proto.getParameter = function (parameter) {
			if (parameter === 37445) return 'Intel Inc.';
			if (parameter === 37446) return 'Intel Iris OpenGL Engine';
			return getParameter.call(this, parameter);
		};
	};
	if (window.WebGLRenderingContext) patch(WebGLRenderingContext.prototype);
	if (window.WebGL2RenderingContext) patch(WebGL2RenderingContext.prototype);
})();
`

const acceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"

var pressKeys = map[string]input.Key{
	KeyEscape: input.Escape,
	KeyEnter:  input.Enter,
	KeyEnd:    input.End,
}

// rodBrowser is the production Browser backed by a local Chrome
type rodBrowser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	cfg      config.BrowserConfig
	logger   logger.Logger
}

// LaunchRod starts Chrome with automation markers disabled and connects to it.
// With a configured UserDataDir the profile persists between runs.
func LaunchRod(ctx context.Context, cfg config.BrowserConfig, log logger.Logger) (Browser, error) {
	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("lang", "zh-CN")

	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	} else if path, has := launcher.LookPath(); has {
		l = l.Bin(path)
	}
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	log.DebugWithFields("Browser launched", map[string]interface{}{
		"headless":      cfg.Headless,
		"user_data_dir": cfg.UserDataDir,
	})

	return &rodBrowser{launcher: l, browser: browser, cfg: cfg, logger: log}, nil
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := rodstealth.Page(b.browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}

	ua := b.cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: acceptLanguage,
	}); err != nil {
		return nil, fmt.Errorf("failed to set user agent: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.cfg.ViewportWidth,
		Height:            b.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	if _, err := page.EvalOnNewDocument(identityScript); err != nil {
		b.logger.WithError(err).Warn("Failed to install identity script")
	}

	return &rodPage{page: page, timeout: b.cfg.Timeout}, nil
}

func (b *rodBrowser) Cookies(ctx context.Context) ([]cookie.Record, error) {
	cookies, err := b.browser.Context(ctx).GetCookies()
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}

	records := make([]cookie.Record, 0, len(cookies))
	for _, c := range cookies {
		records = append(records, cookie.Record{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return records, nil
}

func (b *rodBrowser) SetCookies(ctx context.Context, records []cookie.Record) error {
	params := make([]*proto.NetworkCookieParam, 0, len(records))
	for _, r := range records {
		param := &proto.NetworkCookieParam{
			Name:     r.Name,
			Value:    r.Value,
			Domain:   r.Domain,
			Path:     r.Path,
			HTTPOnly: r.HTTPOnly,
			Secure:   r.Secure,
		}
		if r.Expires > 0 {
			param.Expires = proto.TimeSinceEpoch(r.Expires)
		}
		if r.SameSite != "" {
			param.SameSite = proto.NetworkCookieSameSite(r.SameSite)
		}
		params = append(params, param)
	}
	if len(params) == 0 {
		return nil
	}
	return b.browser.Context(ctx).SetCookies(params)
}

func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	if b.cfg.UserDataDir == "" {
		// Temporary profile only; a configured profile must survive
		b.launcher.Cleanup()
	}
	return err
}

// rodPage adapts *rod.Page to Page
type rodPage struct {
	page    *rod.Page
	timeout time.Duration
}

func (r *rodPage) bounded(ctx context.Context) *rod.Page {
	p := r.page.Context(ctx)
	if r.timeout > 0 {
		p = p.Timeout(r.timeout)
	}
	return p
}

func (r *rodPage) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := r.bounded(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q not found: %w", selector, err)
	}
	return el, nil
}

func (r *rodPage) Navigate(ctx context.Context, url string) error {
	p := r.bounded(ctx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	wait()
	return nil
}

func (r *rodPage) Reload(ctx context.Context) error {
	p := r.bounded(ctx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Reload(); err != nil {
		return fmt.Errorf("failed to reload: %w", err)
	}
	wait()
	return nil
}

func (r *rodPage) WaitIdle(ctx context.Context, timeout time.Duration) error {
	idleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wait := r.page.Context(idleCtx).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	wait()
	return idleCtx.Err()
}

func (r *rodPage) Info(ctx context.Context) (string, string, error) {
	info, err := r.page.Context(ctx).Info()
	if err != nil {
		return "", "", err
	}
	return info.URL, info.Title, nil
}

func (r *rodPage) Eval(ctx context.Context, js string, args ...interface{}) ([]byte, error) {
	res, err := r.bounded(ctx).Evaluate(rod.Eval(js, args...).ByPromise())
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate script: %w", err)
	}
	return res.Value.MarshalJSON()
}

func (r *rodPage) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := r.page.Context(ctx).Has(selector)
	return has, err
}

func (r *rodPage) Count(ctx context.Context, selector string) (int, error) {
	els, err := r.page.Context(ctx).Elements(selector)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (r *rodPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	p := r.page.Context(ctx).Timeout(timeout)
	el, err := p.Element(selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", selector, err)
	}
	return el.WaitVisible()
}

func (r *rodPage) Click(ctx context.Context, selector string) error {
	el, err := r.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (r *rodPage) Hover(ctx context.Context, selector string) error {
	el, err := r.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.Hover()
}

func (r *rodPage) ScrollIntoView(ctx context.Context, selector string) error {
	el, err := r.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.ScrollIntoView()
}

func (r *rodPage) Text(ctx context.Context, selector string) (string, error) {
	el, err := r.element(ctx, selector)
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (r *rodPage) Attribute(ctx context.Context, selector, name string) (string, error) {
	el, err := r.element(ctx, selector)
	if err != nil {
		return "", err
	}
	value, err := el.Attribute(name)
	if err != nil || value == nil {
		return "", err
	}
	return *value, nil
}

func (r *rodPage) Type(ctx context.Context, selector, text string, delay time.Duration) error {
	if selector != "" {
		el, err := r.element(ctx, selector)
		if err != nil {
			return err
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("failed to focus %q: %w", selector, err)
		}
	}

	p := r.page.Context(ctx)
	for _, ch := range text {
		if err := p.InsertText(string(ch)); err != nil {
			return fmt.Errorf("failed to type: %w", err)
		}
		if err := retry.Wait(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

func (r *rodPage) Press(ctx context.Context, key string) error {
	k, ok := pressKeys[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	return r.page.Context(ctx).Keyboard.Press(k)
}

func (r *rodPage) SetFiles(ctx context.Context, selector string, paths []string) error {
	el, err := r.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.SetFiles(paths)
}

func (r *rodPage) Close() error {
	return r.page.Close()
}

var _ Browser = (*rodBrowser)(nil)
var _ Page = (*rodPage)(nil)
