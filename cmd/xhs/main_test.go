package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/strategy"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI in process and returns stdout and the exit code
func run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out, msg bytes.Buffer
	ui.SetOutput(&out, &msg)
	t.Cleanup(func() { ui.SetOutput(os.Stdout, os.Stderr) })

	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), report(err)
}

func decode(t *testing.T, out string, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestStrategyCommands(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "strategy.json")

	out, code := run(t, "--strategy", doc, "strategy", "init", "--persona", "咖啡博主", "--direction", "探店,手冲")
	require.Equal(t, exitOK, code, out)
	var overview strategy.Overview
	decode(t, out, &overview)
	assert.Equal(t, "咖啡博主", overview.Persona)
	assert.Equal(t, []string{"探店", "手冲"}, overview.ContentDirection)

	out, code = run(t, "--strategy", doc, "strategy", "record", strategy.ActionLikes)
	require.Equal(t, exitOK, code, out)
	var recorded strategy.Recorded
	decode(t, out, &recorded)
	assert.Equal(t, 1, recorded.TodayCount)

	out, code = run(t, "--strategy", doc, "strategy", "check-limit", strategy.ActionLikes)
	require.Equal(t, exitOK, code, out)
	var limit strategy.Limit
	decode(t, out, &limit)
	assert.True(t, limit.Allowed)
	assert.Equal(t, 1, limit.Used)
	assert.Equal(t, 29, limit.Remaining)
}

func TestStrategyAddPostRejectsBadDate(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "strategy.json")

	out, code := run(t, "--strategy", doc, "strategy", "add-post", "--date", "2024-02-30", "--topic", "露营")
	assert.Equal(t, exitFailure, code)

	var record errs.FailureRecord
	decode(t, out, &record)
	assert.Equal(t, "error", record.Status)
	assert.Equal(t, errs.ErrorTypeValidation, record.ErrorType)
}

func TestSopPublishConsumesQuota(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "strategy.json")

	out, code := run(t, "--strategy", doc, "--seed", "7", "sop", "publish", "--topic", "旅行", "--image", "a.jpg")
	require.Equal(t, exitOK, code, out)
	var plan map[string]interface{}
	decode(t, out, &plan)
	assert.Equal(t, "ready", plan["status"])

	out, code = run(t, "--strategy", doc, "strategy", "check-limit", strategy.ActionPublishes)
	require.Equal(t, exitOK, code, out)
	var limit strategy.Limit
	decode(t, out, &limit)
	assert.Equal(t, 1, limit.Used)
}

func TestSopCommentPlanOnly(t *testing.T) {
	dir := t.TempDir()
	items := filepath.Join(dir, "items.json")
	require.NoError(t, os.WriteFile(items, []byte(`[
		{"feed_id": "n1", "xsec_token": "t1", "content": "好看"},
		{"feed_id": "n2", "xsec_token": "t2", "content": "谢谢", "comment_id": "c1"},
		{"feed_id": "n3", "xsec_token": "t3", "content": "  "}
	]`), 0644))

	out, code := run(t, "--strategy", filepath.Join(dir, "strategy.json"), "sop", "comment", "--items", items)
	require.Equal(t, exitOK, code, out)

	var plan map[string]interface{}
	decode(t, out, &plan)
	assert.Equal(t, "ready", plan["status"])
	assert.EqualValues(t, 2, plan["executable_items"])
	assert.Len(t, plan["rejected_items"], 1)
}

func TestReadCommentItems(t *testing.T) {
	_, err := readCommentItems("")
	assert.Error(t, err)

	_, err = readCommentItems(filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, errs.ErrorTypeValidation, errs.TypeOf(err))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"feed_id": "n1"}`), 0644))
	_, err = readCommentItems(bad)
	assert.Equal(t, errs.ErrorTypeValidation, errs.TypeOf(err))
}

func TestReportExitCodes(t *testing.T) {
	var out, msg bytes.Buffer
	ui.SetOutput(&out, &msg)
	t.Cleanup(func() { ui.SetOutput(os.Stdout, os.Stderr) })

	assert.Equal(t, exitOK, report(nil))
	assert.Empty(t, out.String())

	assert.Equal(t, exitChallenge, report(errs.NewChallengeError("https://www.xiaohongshu.com/website-login/captcha", 6)))
	var record errs.FailureRecord
	decode(t, out.String(), &record)
	assert.Equal(t, "captcha", record.Status)
	assert.Equal(t, 6, record.NavigateCount)

	out.Reset()
	assert.Equal(t, exitFailure, report(errs.New(errs.ErrorTypeBrowser, "button not found")))
	assert.Contains(t, out.String(), `"error_type": "browser"`)

	// A failure whose result is already printed adds nothing to stdout
	out.Reset()
	assert.Equal(t, exitChallenge, report(&printedError{err: errs.NewChallengeError("u", 1)}))
	assert.Empty(t, out.String())
}

func TestTokenArg(t *testing.T) {
	assert.Equal(t, "flag", tokenArg([]string{"n1"}, "flag"))
	assert.Equal(t, "pos", tokenArg([]string{"n1", "pos"}, "flag"))
	assert.Equal(t, "flag", tokenArg([]string{"n1", ""}, "flag"))
}
