// Package anomaly recognises security-verification interstitials served in
// place of the requested page.
package anomaly

import (
	"context"
	"strings"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
)

// URLPatterns are substrings of a challenge page URL
var URLPatterns = []string{
	"captcha",
	"security-verification",
	"website-login/captcha",
	"verifyType",
	"verifyBiz",
}

// TitlePatterns are substrings of a challenge page title
var TitlePatterns = []string{
	"安全验证",
	"验证码",
	"captcha",
	"Security Verification",
}

// Verdict is the two-state classification of a page
type Verdict int

const (
	Clear Verdict = iota
	Challenged
)

func (v Verdict) String() string {
	if v == Challenged {
		return "challenged"
	}
	return "clear"
}

// Signal is the result of classifying one page
type Signal struct {
	Verdict Verdict
	URL     string
	Title   string
	// Matched is the pattern that triggered a challenge, empty when clear
	Matched string
}

// Challenged reports whether the signal is a challenge
func (s Signal) Challenged() bool {
	return s.Verdict == Challenged
}

// Probe reads the current page location and title
type Probe interface {
	Info(ctx context.Context) (url, title string, err error)
}

// Classify checks url and title against the challenge patterns, case-insensitively
func Classify(url, title string) Signal {
	signal := Signal{Verdict: Clear, URL: url, Title: title}

	lowerURL := strings.ToLower(url)
	for _, p := range URLPatterns {
		if strings.Contains(lowerURL, strings.ToLower(p)) {
			signal.Verdict = Challenged
			signal.Matched = p
			return signal
		}
	}

	lowerTitle := strings.ToLower(title)
	for _, p := range TitlePatterns {
		if strings.Contains(lowerTitle, strings.ToLower(p)) {
			signal.Verdict = Challenged
			signal.Matched = p
			return signal
		}
	}

	return signal
}

// Check probes the page and classifies it. A nil probe or a failing probe is clear.
func Check(ctx context.Context, probe Probe) Signal {
	if probe == nil {
		return Signal{Verdict: Clear}
	}
	url, title, err := probe.Info(ctx)
	if err != nil {
		return Signal{Verdict: Clear}
	}
	return Classify(url, title)
}

// Detector turns challenged pages into ChallengeError faults
type Detector struct {
	logger logger.Logger
}

// NewDetector creates a detector; a nil logger discards diagnostics
func NewDetector(l logger.Logger) *Detector {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Detector{logger: l}
}

// Guard returns a *errors.ChallengeError when the probed page is a challenge, nil otherwise
func (d *Detector) Guard(ctx context.Context, probe Probe, navigateCount int) error {
	signal := Check(ctx, probe)
	if !signal.Challenged() {
		return nil
	}

	logger.LogChallenge(d.logger, signal.URL, signal.Title, navigateCount)
	return errs.NewChallengeError(signal.URL, navigateCount)
}
