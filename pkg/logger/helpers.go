package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

func orGlobal(l Logger) Logger {
	if l == nil {
		return GetLogger()
	}
	return l
}

// LogNavigation logs a completed page transition
func LogNavigation(l Logger, url string, count int, elapsed time.Duration) {
	orGlobal(l).WithFields(map[string]interface{}{
		"url":            url,
		"navigate_count": count,
		"elapsed":        elapsed,
	}).Info("Navigated")
}

// LogThrottle logs a pacing delay before a navigation
func LogThrottle(l Logger, reason string, wait time.Duration, count int) {
	orGlobal(l).WithFields(map[string]interface{}{
		"reason":         reason,
		"wait":           wait,
		"navigate_count": count,
	}).Debug("Throttle delay")
}

// LogChallenge logs a detected security interstitial
func LogChallenge(l Logger, url, title string, count int) {
	orGlobal(l).WithFields(map[string]interface{}{
		"url":            url,
		"title":          title,
		"navigate_count": count,
		"action":         "challenge_detected",
	}).Warn("Security verification detected, halting")
}

// LogQuota logs a ledger decision for a write action
func LogQuota(l Logger, action string, used, limit int, allowed bool) {
	fields := map[string]interface{}{
		"action_type": action,
		"used":        used,
		"limit":       limit,
		"allowed":     allowed,
	}
	if allowed {
		orGlobal(l).DebugWithFields("Quota check", fields)
	} else {
		orGlobal(l).WarnWithFields("Daily quota exhausted", fields)
	}
}

// LogPlan logs the outcome of building an action plan
func LogPlan(l Logger, kind, status string, fields map[string]interface{}) {
	merged := map[string]interface{}{
		"plan":   kind,
		"status": status,
	}
	for k, v := range fields {
		merged[k] = v
	}
	orGlobal(l).InfoWithFields("Plan built", merged)
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	logger := orGlobal(l).WithField("component", component)
	if len(config) > 0 {
		logger = logger.WithFields(config)
	}
	logger.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	orGlobal(l).WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
