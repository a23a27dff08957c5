// Package session owns the single browser page used to drive the site. Every
// page transition goes through Navigate, which paces it with the session's
// throttle and checks the landed page for security verification.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/anomaly"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/config"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/cookie"
	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/ratelimit"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/retry"
)

const (
	settleMin          = 1500 * time.Millisecond
	settleMax          = 3 * time.Second
	networkIdleTimeout = 8 * time.Second
	closeTimeout       = 10 * time.Second
)

// Session is one browser, one page and one throttle
type Session struct {
	ID string

	cfg      *config.Config
	store    cookie.Store
	launch   Launcher
	throttle ratelimit.Limiter
	detector *anomaly.Detector
	logger   logger.Logger
	sleep    ratelimit.SleepFunc
	rng      *rand.Rand
	now      func() time.Time

	browser Browser
	page    Page
}

// Option configures a Session
type Option func(*Session)

// WithLauncher replaces the browser launcher
func WithLauncher(l Launcher) Option {
	return func(s *Session) { s.launch = l }
}

// WithThrottle replaces the session's navigation throttle
func WithThrottle(t ratelimit.Limiter) Option {
	return func(s *Session) { s.throttle = t }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithSleep replaces the sleeper used for settle and polling pauses
func WithSleep(sleep ratelimit.SleepFunc) Option {
	return func(s *Session) { s.sleep = sleep }
}

// WithRand sets the random source for pause lengths
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) { s.rng = rng }
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a session that is not yet started. store may be nil, in which
// case cookies are neither hydrated nor persisted.
func New(cfg *config.Config, store cookie.Store, opts ...Option) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		cfg:    cfg,
		store:  store,
		launch: LaunchRod,
		logger: logger.GetLogger(),
		sleep:  retry.Wait,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.WithField("session", s.ID)
	if s.throttle == nil {
		s.throttle = ratelimit.NewThrottle(cfg.Throttle, ratelimit.WithLogger(s.logger))
	}
	s.detector = anomaly.NewDetector(s.logger)
	return s
}

// Config returns the configuration the session was built with
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Logger returns the session-scoped logger
func (s *Session) Logger() logger.Logger {
	return s.logger
}

// Started reports whether Start has completed
func (s *Session) Started() bool {
	return s.page != nil
}

// Start launches the browser and opens the session page. Stored cookies are
// loaded only when the browser profile has none of its own. Calling Start on
// a started session does nothing.
func (s *Session) Start(ctx context.Context) error {
	if s.page != nil {
		return nil
	}

	browser, err := s.launch(ctx, s.cfg.Browser, s.logger)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeBrowser, "failed to launch browser", err)
	}
	if browser == nil {
		return errs.New(errs.ErrorTypeBrowser, "launcher returned no browser")
	}
	s.browser = browser

	if err := s.hydrate(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to load stored cookies")
	}

	page, err := browser.NewPage(ctx)
	if err != nil {
		_ = browser.Close()
		s.browser = nil
		return errs.Wrap(errs.ErrorTypeBrowser, "failed to open page", err)
	}
	s.page = page

	storePath := ""
	if s.store != nil {
		storePath = s.store.Path()
	}
	logger.LogComponentStart(s.logger, "session", map[string]interface{}{
		"headless":      s.cfg.Browser.Headless,
		"user_data_dir": s.cfg.Browser.UserDataDir,
		"cookie_store":  storePath,
	})
	return nil
}

func (s *Session) hydrate(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	existing, err := s.browser.Cookies(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		s.logger.DebugWithFields("Browser profile already has cookies", map[string]interface{}{
			"count": len(existing),
		})
		return nil
	}

	records, err := s.store.Load()
	if err != nil {
		return err
	}
	live := cookie.Live(records, s.now())
	if len(live) == 0 {
		return nil
	}
	if err := s.browser.SetCookies(ctx, live); err != nil {
		return err
	}
	s.logger.DebugWithFields("Cookies loaded", map[string]interface{}{
		"count": len(live),
		"path":  s.store.Path(),
	})
	return nil
}

// Close persists cookies, then releases the page and the browser. It is safe
// after a failed Start and on an already closed session.
func (s *Session) Close() error {
	if s.browser == nil && s.page == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if s.browser != nil && s.store != nil {
		if err := s.SaveCookies(ctx); err != nil {
			s.logger.WithError(err).Warn("Failed to persist cookies")
		}
	}

	var closeErrs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("close page: %w", err))
		}
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("close browser: %w", err))
		}
		s.browser = nil
	}

	logger.LogComponentStop(s.logger, "session", "closed")
	return errors.Join(closeErrs...)
}

// SaveCookies writes the browser's current cookie jar to the store
func (s *Session) SaveCookies(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	records, err := s.Cookies(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Save(records); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	s.logger.DebugWithFields("Cookies saved", map[string]interface{}{
		"count": len(records),
		"path":  s.store.Path(),
	})
	return nil
}

// Page returns the session page, or ErrNotStarted
func (s *Session) Page() (Page, error) {
	if s.page == nil {
		return nil, errs.ErrNotStarted
	}
	return s.page, nil
}

// Navigate paces, loads url, lets the page settle and then checks for a
// security verification page, returned as *errors.ChallengeError.
func (s *Session) Navigate(ctx context.Context, url string) error {
	page, err := s.Page()
	if err != nil {
		return err
	}

	if err := s.throttle.Wait(ctx); err != nil {
		return err
	}

	start := s.now()
	if err := page.Navigate(ctx, url); err != nil {
		return errs.Wrap(errs.ErrorTypeBrowser, "navigation failed", err)
	}
	if err := s.Pause(ctx, settleMin, settleMax); err != nil {
		return err
	}

	if err := page.WaitIdle(ctx, networkIdleTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.DebugWithFields("Network did not go idle", map[string]interface{}{"url": url})
	}

	count := s.throttle.Stats().NavigateCount
	logger.LogNavigation(s.logger, url, count, s.now().Sub(start))
	return s.detector.Guard(ctx, page, count)
}

// CheckChallenge inspects the current page without navigating
func (s *Session) CheckChallenge(ctx context.Context) error {
	page, err := s.Page()
	if err != nil {
		return err
	}
	return s.detector.Guard(ctx, page, s.throttle.Stats().NavigateCount)
}

// Stats returns the throttle counters of this session
func (s *Session) Stats() ratelimit.Stats {
	return s.throttle.Stats()
}

// Eval runs a JS function expression on the page and returns its JSON result
func (s *Session) Eval(ctx context.Context, js string, args ...interface{}) ([]byte, error) {
	page, err := s.Page()
	if err != nil {
		return nil, err
	}
	return page.Eval(ctx, js, args...)
}

// EvalInto runs js and decodes its JSON result into v
func (s *Session) EvalInto(ctx context.Context, v interface{}, js string, args ...interface{}) error {
	raw, err := s.Eval(ctx, js, args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errs.Wrap(errs.ErrorTypeExtraction, "unexpected script result", err)
	}
	return nil
}

// ScrollBy scrolls the window vertically by dy pixels
func (s *Session) ScrollBy(ctx context.Context, dy int) error {
	_, err := s.Eval(ctx, `(dy) => { window.scrollBy(0, dy); return true; }`, dy)
	return err
}

// Cookies returns the browser's current cookie jar
func (s *Session) Cookies(ctx context.Context) ([]cookie.Record, error) {
	if s.browser == nil {
		return nil, errs.ErrNotStarted
	}
	return s.browser.Cookies(ctx)
}

// IsLoggedIn reports whether the jar holds an unexpired session cookie
func (s *Session) IsLoggedIn(ctx context.Context) (bool, error) {
	records, err := s.Cookies(ctx)
	if err != nil {
		return false, err
	}
	return cookie.HasSession(records, s.now()), nil
}

// Sleep blocks for d unless ctx ends first
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return s.sleep(ctx, d)
}

// Pause sleeps a uniformly random duration in [lo, hi]
func (s *Session) Pause(ctx context.Context, lo, hi time.Duration) error {
	d := lo
	if hi > lo {
		d += time.Duration(s.rng.Int63n(int64(hi-lo) + 1))
	}
	return s.sleep(ctx, d)
}
