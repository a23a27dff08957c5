// Package xhs drives the site's pages on top of a session: reading the
// explore feed, search results, notes and profiles, and performing the
// interactions an operator asks for. Whether and when an action may run is
// decided by the caller; this package only knows how.
package xhs

import (
	"context"
	"net/url"
	"regexp"
	"time"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/session"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/state"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/storage"
)

const (
	siteHost   = "www.xiaohongshu.com"
	ExploreURL = "https://" + siteHost + "/explore"
	PublishURL = "https://creator.xiaohongshu.com/publish/publish?source=official"
)

// Xsec sources accepted by note and profile pages
const (
	SourceFeed   = "pc_feed"
	SourceNote   = "pc_note"
	SourceSearch = "pc_search"
)

// Result statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusReady   = "ready"
)

var (
	profileIDPattern = regexp.MustCompile(`/user/profile/([a-f0-9]+)`)
	identPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// Client performs page interactions through one session
type Client struct {
	sess      *session.Session
	artifacts *storage.Manager
	logger    logger.Logger
}

// New creates a client. artifacts may be nil when no file output is needed.
func New(sess *session.Session, artifacts *storage.Manager) *Client {
	return &Client{
		sess:      sess,
		artifacts: artifacts,
		logger:    sess.Logger().WithField("component", "xhs"),
	}
}

// Session returns the underlying session
func (c *Client) Session() *session.Session {
	return c.sess
}

// FeedURL builds a note detail URL
func FeedURL(feedID, xsecToken, source string) string {
	if source == "" {
		source = SourceFeed
	}
	q := url.Values{}
	q.Set("xsec_token", xsecToken)
	q.Set("xsec_source", source)
	u := url.URL{Scheme: "https", Host: siteHost, Path: "/explore/" + feedID, RawQuery: q.Encode()}
	return u.String()
}

// SearchURL builds the search result URL for keyword
func SearchURL(keyword string) string {
	q := url.Values{}
	q.Set("keyword", keyword)
	q.Set("source", "web_explore_feed")
	u := url.URL{Scheme: "https", Host: siteHost, Path: "/search_result", RawQuery: q.Encode()}
	return u.String()
}

// ProfileURL builds a user profile URL; the token is optional
func ProfileURL(userID, xsecToken string) string {
	u := url.URL{Scheme: "https", Host: siteHost, Path: "/user/profile/" + userID}
	if xsecToken != "" {
		q := url.Values{}
		q.Set("xsec_token", xsecToken)
		q.Set("xsec_source", SourceNote)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func requireID(field, value string) error {
	if value == "" {
		return errs.New(errs.ErrorTypeValidation, field+" is required")
	}
	if !identPattern.MatchString(value) {
		return errs.New(errs.ErrorTypeValidation, field+" contains unexpected characters")
	}
	return nil
}

// openNote loads a note page and waits for its state
func (c *Client) openNote(ctx context.Context, feedID, xsecToken string) error {
	target := FeedURL(feedID, xsecToken, SourceFeed)
	c.logger.InfoWithFields("Opening note", map[string]interface{}{"url": target})

	if err := c.sess.Navigate(ctx, target); err != nil {
		return err
	}
	if err := c.sess.WaitForInitialState(ctx); err != nil {
		return err
	}
	return c.sess.Sleep(ctx, 2*time.Second)
}

// readFeeds maps the feed list found at path in the current page state
func (c *Client) readFeeds(ctx context.Context, path string, limit int) ([]state.FeedCard, error) {
	tree, err := c.sess.InitialState(ctx)
	if err != nil {
		if errs.IsFatal(err) {
			return nil, err
		}
		c.logger.WithError(err).Warn("Failed to read page state")
		return []state.FeedCard{}, nil
	}
	return state.MapFeeds(tree, path, limit), nil
}

const clickTextScript = `(selector, text) => {
	const matches = Array.from(document.querySelectorAll(selector))
		.filter(el => el.textContent.trim() === text);
	if (matches.length === 0) return false;
	matches[matches.length - 1].click();
	return true;
}`

// clickText clicks the innermost element matching selector whose text is text
func (c *Client) clickText(ctx context.Context, selector, text string) (bool, error) {
	var clicked bool
	if err := c.sess.EvalInto(ctx, &clicked, clickTextScript, selector, text); err != nil {
		return false, err
	}
	return clicked, nil
}

const scrollToCommentsScript = `() => {
	const comments = document.querySelector('.comments-wrap') ||
		document.querySelector('.comment-wrapper');
	if (comments) comments.scrollIntoView();
	return !!comments;
}`

func (c *Client) scrollToComments(ctx context.Context) error {
	_, err := c.sess.Eval(ctx, scrollToCommentsScript)
	return err
}
