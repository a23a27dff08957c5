package xhs

import (
	"context"
	"fmt"
	"strings"
	"time"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/state"
)

const (
	searchFeedsPath    = "search.feeds"
	DefaultSearchLimit = 50
	noteItemSelector   = "section.note-item"
	filterSelector     = "div.filter"
	filterPanel        = "div.filter-panel"
	filterOptionTag    = "div.filter-panel div.tags"
)

// Filter option groups, in the order the panel shows them
var (
	SortOptions        = []string{"综合", "最新", "最多点赞", "最多评论", "最多收藏"}
	NoteTypeOptions    = []string{"不限", "视频", "图文"}
	PublishTimeOptions = []string{"不限", "一天内", "一周内", "半年内"}
	SearchScopeOptions = []string{"不限", "已看过", "未看过", "已关注"}
	LocationOptions    = []string{"不限", "同城", "附近"}
)

// SearchFilters narrows search results. Empty fields leave the site default.
type SearchFilters struct {
	SortBy      string `json:"sort_by,omitempty"`
	NoteType    string `json:"note_type,omitempty"`
	PublishTime string `json:"publish_time,omitempty"`
	SearchScope string `json:"search_scope,omitempty"`
	Location    string `json:"location,omitempty"`
}

// options lists the chosen filter labels in panel order
func (f SearchFilters) options() []string {
	var out []string
	for _, v := range []string{f.SortBy, f.NoteType, f.PublishTime, f.SearchScope, f.Location} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate checks every set filter against its option group
func (f SearchFilters) Validate() error {
	groups := []struct {
		name    string
		value   string
		options []string
	}{
		{"sort_by", f.SortBy, SortOptions},
		{"note_type", f.NoteType, NoteTypeOptions},
		{"publish_time", f.PublishTime, PublishTimeOptions},
		{"search_scope", f.SearchScope, SearchScopeOptions},
		{"location", f.Location, LocationOptions},
	}

	for _, g := range groups {
		if g.value == "" {
			continue
		}
		if !contains(g.options, g.value) {
			return errs.New(errs.ErrorTypeValidation,
				fmt.Sprintf("invalid %s %q, expected one of %s", g.name, g.value, strings.Join(g.options, ", ")))
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// SearchRequest describes one keyword search
type SearchRequest struct {
	Keyword string
	Filters SearchFilters
	Limit   int
}

// SearchResult carries the matched cards
type SearchResult struct {
	Keyword string           `json:"keyword"`
	Count   int              `json:"count"`
	Feeds   []state.FeedCard `json:"feeds"`
}

const loginPopupCloseScript = `() => {
	const btn = document.querySelector('.login-container .close-button, .login-modal .close, [class*="login"] [class*="close"]');
	if (!btn) return false;
	btn.click();
	return true;
}`

const domSearchScript = `(limit) => {
	const cards = [];
	for (const item of document.querySelectorAll('section.note-item')) {
		if (cards.length >= limit) break;
		const link = item.querySelector('a[href*="/explore/"], a[href*="/search_result/"]');
		if (!link) continue;
		const href = link.getAttribute('href') || '';
		const match = href.match(/\/(?:explore|search_result)\/([a-zA-Z0-9]+)/);
		if (!match) continue;
		const token = (href.match(/xsec_token=([^&]+)/) || [])[1] || '';
		const title = item.querySelector('.title, .footer .title span');
		const author = item.querySelector('.author .name, .author-wrapper .name');
		const likes = item.querySelector('.like-wrapper .count, .count');
		const cover = item.querySelector('img');
		cards.push({
			id: match[1],
			xsecToken: decodeURIComponent(token),
			title: title ? title.textContent.trim() : '',
			type: item.querySelector('.play-icon') ? 'video' : 'normal',
			interactInfo: {likedCount: likes ? likes.textContent.trim() : '0', collectedCount: '0', commentCount: '0', sharedCount: '0'},
			user: {nickname: author ? author.textContent.trim() : '', userId: ''},
			cover: cover ? cover.getAttribute('src') || '' : '',
		});
	}
	return cards;
}`

// Search runs a keyword search and reads the result cards, falling back to
// the rendered list when the page store holds none
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return SearchResult{}, errs.New(errs.ErrorTypeValidation, "keyword is required")
	}
	if err := req.Filters.Validate(); err != nil {
		return SearchResult{}, err
	}

	limit := req.Limit
	if limit <= 0 || limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}

	target := SearchURL(keyword)
	if err := c.sess.Navigate(ctx, target); err != nil {
		return SearchResult{}, err
	}
	if err := c.dismissLoginPopup(ctx, target); err != nil {
		return SearchResult{}, err
	}
	if err := c.sess.WaitForInitialState(ctx); err != nil {
		return SearchResult{}, err
	}
	if err := c.sess.Sleep(ctx, 3*time.Second); err != nil {
		return SearchResult{}, err
	}

	for i := 0; i < 3; i++ {
		if err := c.sess.ScrollBy(ctx, 500); err != nil {
			return SearchResult{}, err
		}
		if err := c.sess.Sleep(ctx, 500*time.Millisecond); err != nil {
			return SearchResult{}, err
		}
	}

	if opts := req.Filters.options(); len(opts) > 0 {
		if err := c.applyFilters(ctx, opts); err != nil {
			return SearchResult{}, err
		}
	}

	page, err := c.sess.Page()
	if err != nil {
		return SearchResult{}, err
	}
	if err := page.WaitVisible(ctx, noteItemSelector, 10*time.Second); err != nil {
		c.logger.WithError(err).Warn("Search results not visible")
	}

	feeds, err := c.readFeeds(ctx, searchFeedsPath, limit)
	if err != nil {
		return SearchResult{}, err
	}
	if len(feeds) == 0 {
		c.logger.Info("Search state empty, reading rendered results")
		var dom []state.FeedCard
		if err := c.sess.EvalInto(ctx, &dom, domSearchScript, limit); err != nil {
			if errs.IsFatal(err) {
				return SearchResult{}, err
			}
			c.logger.WithError(err).Warn("Rendered result extraction failed")
		}
		feeds = dom
	}
	if feeds == nil {
		feeds = []state.FeedCard{}
	}

	c.logger.InfoWithFields("Search finished", map[string]interface{}{
		"keyword": keyword,
		"count":   len(feeds),
	})
	return SearchResult{Keyword: keyword, Count: len(feeds), Feeds: feeds}, nil
}

// dismissLoginPopup closes the login dialog the site shows to anonymous
// visitors, returning to the result page if closing it navigated away
func (c *Client) dismissLoginPopup(ctx context.Context, target string) error {
	for attempt := 0; attempt < 2; attempt++ {
		var closed bool
		if err := c.sess.EvalInto(ctx, &closed, loginPopupCloseScript); err != nil {
			if errs.IsFatal(err) {
				return err
			}
			return nil
		}
		if !closed {
			return nil
		}

		c.logger.Debug("Closed login popup")
		if err := c.sess.Sleep(ctx, time.Second); err != nil {
			return err
		}

		page, err := c.sess.Page()
		if err != nil {
			return err
		}
		current, _, err := page.Info(ctx)
		if err == nil && !strings.Contains(current, "search_result") {
			if err := c.sess.Navigate(ctx, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyFilters opens the filter panel and clicks each option label
func (c *Client) applyFilters(ctx context.Context, options []string) error {
	page, err := c.sess.Page()
	if err != nil {
		return err
	}

	if err := page.Hover(ctx, filterSelector); err != nil {
		return errs.Wrap(errs.ErrorTypeBrowser, "filter button not found", err)
	}
	if err := page.WaitVisible(ctx, filterPanel, 5*time.Second); err != nil {
		return errs.Wrap(errs.ErrorTypeBrowser, "filter panel did not open", err)
	}

	for _, option := range options {
		clicked, err := c.clickText(ctx, filterOptionTag, option)
		if err != nil {
			return err
		}
		if !clicked {
			c.logger.WithField("option", option).Warn("Filter option not found")
		}
		if err := c.sess.Sleep(ctx, 300*time.Millisecond); err != nil {
			return err
		}
	}

	return c.sess.Sleep(ctx, time.Second)
}
