package anomaly

import (
	"context"
	"errors"
	"testing"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProbe struct {
	url, title string
	err        error
}

func (p stubProbe) Info(ctx context.Context) (string, string, error) {
	return p.url, p.title, p.err
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		title string
		want  Verdict
	}{
		{"captcha path", "https://www.xiaohongshu.com/website-login/captcha?redirect=x", "小红书", Challenged},
		{"security verification path", "https://www.xiaohongshu.com/security-verification", "", Challenged},
		{"verifyType query", "https://www.xiaohongshu.com/explore?verifyType=101", "", Challenged},
		{"verifyBiz query", "https://www.xiaohongshu.com/explore?verifyBiz=461", "", Challenged},
		{"lowercased verify marker", "https://www.xiaohongshu.com/explore?verifytype=1", "", Challenged},
		{"uppercase captcha", "https://www.xiaohongshu.com/CAPTCHA", "", Challenged},
		{"chinese title", "https://www.xiaohongshu.com/explore", "安全验证", Challenged},
		{"verification code title", "https://www.xiaohongshu.com/explore", "请输入验证码", Challenged},
		{"english title", "https://www.xiaohongshu.com/explore", "security verification required", Challenged},
		{"normal page", "https://www.xiaohongshu.com/explore", "小红书 - 你的生活指南", Clear},
		{"empty", "", "", Clear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal := Classify(tt.url, tt.title)
			assert.Equal(t, tt.want, signal.Verdict)
			if tt.want == Challenged {
				assert.NotEmpty(t, signal.Matched)
			} else {
				assert.Empty(t, signal.Matched)
			}
		})
	}
}

func TestCheckNilProbeIsClear(t *testing.T) {
	var signal Signal
	assert.NotPanics(t, func() { signal = Check(context.Background(), nil) })
	assert.False(t, signal.Challenged())
}

func TestCheckProbeErrorIsClear(t *testing.T) {
	probe := stubProbe{url: "https://x/captcha", err: errors.New("execution context destroyed")}
	assert.Equal(t, Clear, Check(context.Background(), probe).Verdict)
}

func TestCheckIsStateless(t *testing.T) {
	ctx := context.Background()
	assert.True(t, Check(ctx, stubProbe{url: "https://x/captcha"}).Challenged())
	assert.False(t, Check(ctx, stubProbe{url: "https://x/explore"}).Challenged())
}

func TestGuard(t *testing.T) {
	log := logger.NewTestLogger()
	detector := NewDetector(log)
	ctx := context.Background()

	require.NoError(t, detector.Guard(ctx, stubProbe{url: "https://www.xiaohongshu.com/explore"}, 2))
	assert.Empty(t, log.GetMessages())

	err := detector.Guard(ctx, stubProbe{url: "https://www.xiaohongshu.com/website-login/captcha"}, 7)
	require.Error(t, err)

	var ce *errs.ChallengeError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "https://www.xiaohongshu.com/website-login/captcha", ce.URL)
	assert.Equal(t, 7, ce.NavigateCount)
	assert.NotEmpty(t, ce.Hint)
	assert.True(t, errs.IsFatal(err))

	assert.Len(t, log.GetMessagesByLevel("WARN"), 1)
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "clear", Clear.String())
	assert.Equal(t, "challenged", Challenged.String())
}
