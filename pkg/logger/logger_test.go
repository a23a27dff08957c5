package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level json", &config.LoggingConfig{Level: "debug", JSON: true}, false},
		{"invalid level", &config.LoggingConfig{Level: "invalid"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "xhs.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"loud", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.InfoLevel)

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.Info("visible")
	assert.Contains(t, buf.String(), `"message":"visible"`)
	assert.Contains(t, buf.String(), `"app":"xhs"`)
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.DebugLevel)

	logger.
		WithField("session_id", "abc").
		WithFields(map[string]interface{}{
			"navigate_count": 4,
			"headless":       true,
			"wait":           1500 * time.Millisecond,
		}).
		Info("chained")

	output := buf.String()
	assert.Contains(t, output, `"session_id":"abc"`)
	assert.Contains(t, output, `"navigate_count":4`)
	assert.Contains(t, output, `"headless":true`)
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(&buf, zerolog.InfoLevel)
	_ = parent.WithField("child_only", "x")

	parent.Info("parent")
	assert.NotContains(t, buf.String(), "child_only")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.InfoLevel)

	assert.Same(t, logger, logger.WithError(nil))

	logger.WithError(errors.New("page crashed")).Error("failed")
	assert.Contains(t, buf.String(), "page crashed")
}

func TestGlobalLogger(t *testing.T) {
	test := NewTestLogger()
	SetLogger(test)
	defer SetLogger(NewNopLogger())

	Info("hello")
	WithField("k", "v").Warn("warned")
	WithError(errors.New("boom")).Error("errored")

	assert.True(t, test.HasMessage("hello"))
	warns := test.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "v", warns[0].Fields["k"])
	errs := test.GetMessagesByLevel("ERROR")
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0].Error, "boom")
}

func TestDomainHelpers(t *testing.T) {
	test := NewTestLogger()

	LogNavigation(test, "https://www.xiaohongshu.com/explore", 3, time.Second)
	LogChallenge(test, "https://www.xiaohongshu.com/website-login/captcha", "安全验证", 3)
	LogQuota(test, "likes", 30, 30, false)
	LogPlan(test, "publish", "ready", map[string]interface{}{"title": "t"})

	msgs := test.GetMessages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "Navigated", msgs[0].Message)
	assert.Equal(t, 3, msgs[0].Fields["navigate_count"])
	assert.Equal(t, "WARN", msgs[1].Level)
	assert.Equal(t, "challenge_detected", msgs[1].Fields["action"])
	assert.Equal(t, "Daily quota exhausted", msgs[2].Message)
	assert.Equal(t, "publish", msgs[3].Fields["plan"])
	assert.Equal(t, "t", msgs[3].Fields["title"])
}

func TestTestLoggerClear(t *testing.T) {
	test := NewTestLogger()
	test.WithFields(map[string]interface{}{"a": 1}).Info("one")
	assert.Len(t, test.GetMessages(), 1)

	test.Clear()
	assert.Empty(t, test.GetMessages())
}
