package xhs

import (
	"context"
	"time"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/state"
)

const (
	userPageDataPath = "user.userPageData"
	userNotesPath    = "user.notes"
	sidebarAvatar    = ".side-bar .user, .sidebar .user, .channel-list .user"
)

// Profile is a user's public page
type Profile struct {
	BasicInfo    map[string]interface{} `json:"userBasicInfo"`
	Interactions []interface{}          `json:"interactions"`
	Feeds        []state.FeedCard       `json:"feeds"`
}

const myUserIDScript = `() => {
	const link = document.querySelector('.side-bar a[href*="/user/profile/"], .sidebar a[href*="/user/profile/"]');
	if (link) {
		const m = (link.getAttribute('href') || '').match(/\/user\/profile\/([a-f0-9]+)/);
		if (m) return m[1];
	}
	const user = window.__INITIAL_STATE__ && window.__INITIAL_STATE__.user;
	const info = user && (user.userInfo || {});
	const data = info && (info._value || info.value || info);
	return (data && data.userId) || '';
}`

// UserProfile reads a user's profile page
func (c *Client) UserProfile(ctx context.Context, userID, xsecToken string) (Profile, error) {
	if err := requireID("user_id", userID); err != nil {
		return Profile{}, err
	}

	if err := c.sess.Navigate(ctx, ProfileURL(userID, xsecToken)); err != nil {
		return Profile{}, err
	}
	if err := c.sess.WaitForInitialState(ctx); err != nil {
		return Profile{}, err
	}
	if err := c.sess.Sleep(ctx, time.Second); err != nil {
		return Profile{}, err
	}

	tree, err := c.sess.InitialState(ctx)
	if err != nil {
		return Profile{}, err
	}

	data, ok := state.Map(tree, userPageDataPath)
	if !ok {
		return Profile{}, errs.New(errs.ErrorTypeExtraction, "user page data not found for "+userID)
	}

	profile := Profile{
		BasicInfo:    map[string]interface{}{},
		Interactions: []interface{}{},
		Feeds:        state.MapFeeds(tree, userNotesPath, 0),
	}
	if basic, ok := state.Map(data, "basicInfo"); ok {
		profile.BasicInfo = basic
	}
	if interactions, ok := state.List(data, "interactions"); ok {
		profile.Interactions = interactions
	}
	return profile, nil
}

// MyUserID finds the logged in user's id from the sidebar, falling back to
// following the avatar link
func (c *Client) MyUserID(ctx context.Context) (string, error) {
	if err := c.sess.Navigate(ctx, ExploreURL); err != nil {
		return "", err
	}
	if err := c.sess.Sleep(ctx, 2*time.Second); err != nil {
		return "", err
	}

	var uid string
	if err := c.sess.EvalInto(ctx, &uid, myUserIDScript); err != nil && errs.IsFatal(err) {
		return "", err
	}
	if uid != "" {
		return uid, nil
	}

	page, err := c.sess.Page()
	if err != nil {
		return "", err
	}
	if err := page.Click(ctx, sidebarAvatar); err != nil {
		return "", errs.Wrap(errs.ErrorTypeExtraction, "could not locate own profile", err)
	}
	if err := c.sess.Sleep(ctx, 2*time.Second); err != nil {
		return "", err
	}

	current, _, err := page.Info(ctx)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeBrowser, "failed to read page url", err)
	}
	if m := profileIDPattern.FindStringSubmatch(current); m != nil {
		return m[1], nil
	}
	return "", errs.New(errs.ErrorTypeExtraction, "could not locate own profile")
}

// MyProfile reads the logged in user's own profile
func (c *Client) MyProfile(ctx context.Context) (Profile, error) {
	uid, err := c.MyUserID(ctx)
	if err != nil {
		return Profile{}, err
	}
	return c.UserProfile(ctx, uid, "")
}
