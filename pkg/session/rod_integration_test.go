//go:build integration

package session_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/config"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/cookie"
	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/ratelimit"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/session"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/session/sessiontest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notePage = `<!DOCTYPE html>
<html><head><title>笔记</title></head>
<body>
<div class="feeds-page"><section class="note-item">咖啡</section></div>
<script>
window.__INITIAL_STATE__ = {
	note: { noteDetailMap: { value: { "abc123": { note: { title: "手冲咖啡", interactInfo: { liked: true } } } } } },
	feed: { feeds: { _value: [{ id: "abc123", xsecToken: "tok" }] } }
};
</script>
</body></html>`

const challengePage = `<!DOCTYPE html>
<html><head><title>安全验证</title></head><body>请完成验证</body></html>`

// newSiteServer serves a note page with a page store and a challenge page
func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/explore/abc123", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "web_session", Value: "s1", Path: "/", Expires: time.Now().Add(time.Hour)})
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, notePage)
	})
	mux.HandleFunc("/website-login/captcha", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, challengePage)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRodSessionAgainstLocalSite(t *testing.T) {
	server := newSiteServer(t)
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Browser.Headless = true
	cfg.Browser.UserDataDir = ""
	cfg.Browser.Timeout = 30 * time.Second
	cfg.Retry.InitialStateTimeout = 5 * time.Second

	store := cookie.NewFileStore(filepath.Join(dir, "cookies.json"))
	throttle := ratelimit.NewThrottle(cfg.Throttle, ratelimit.WithSleep(sessiontest.NoSleep))
	sess := session.New(cfg, store, session.WithThrottle(throttle), session.WithLogger(logger.NewNopLogger()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	require.NoError(t, sess.Start(ctx))
	defer sess.Close()

	require.NoError(t, sess.Navigate(ctx, server.URL+"/explore/abc123"))
	require.NoError(t, sess.WaitForInitialState(ctx))

	title, ok, err := sess.LookupPath(ctx, "note.noteDetailMap.abc123.note.title")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "手冲咖啡", title)

	var items int
	require.NoError(t, sess.EvalInto(ctx, &items, `() => document.querySelectorAll('section.note-item').length`))
	assert.Equal(t, 1, items)

	require.NoError(t, sess.SaveCookies(ctx))
	saved, err := store.Load()
	require.NoError(t, err)
	assert.True(t, cookie.HasSession(saved, time.Now()))

	err = sess.Navigate(ctx, server.URL+"/website-login/captcha")
	require.Error(t, err)
	assert.True(t, errs.IsChallenge(err))
	assert.Equal(t, 2, sess.Stats().NavigateCount)
}
