package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the categories of failure the automation core distinguishes
type ErrorType string

const (
	ErrorTypeNotStarted ErrorType = "not_started"
	ErrorTypeChallenge  ErrorType = "challenge"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeQuota      ErrorType = "quota"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeBrowser    ErrorType = "browser"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error represents a typed failure with an optional wrapped cause
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same type so errors.Is(err, ErrNotStarted) works on wrapped copies
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// New creates a typed error
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap creates a typed error around a cause
func Wrap(errorType ErrorType, message string, err error) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

// ErrNotStarted is returned by any page operation invoked before the session was started
var ErrNotStarted = &Error{Type: ErrorTypeNotStarted, Message: "browser session not started"}

// DefaultChallengeHint tells the operator how to get past a security interstitial
const DefaultChallengeHint = "wait a few minutes and retry; or rerun with --headless=false and pass the verification manually; or log in again"

// ChallengeError is raised when the remote site serves a security verification page
type ChallengeError struct {
	URL           string
	NavigateCount int
	Hint          string
}

func (e *ChallengeError) Error() string {
	return fmt.Sprintf("security verification triggered at %s after %d navigations", e.URL, e.NavigateCount)
}

// Is lets errors.Is(err, &ChallengeError{}) match any challenge
func (e *ChallengeError) Is(target error) bool {
	_, ok := target.(*ChallengeError)
	return ok
}

// NewChallengeError builds a challenge fault with the default remediation hint
func NewChallengeError(url string, navigateCount int) *ChallengeError {
	return &ChallengeError{
		URL:           url,
		NavigateCount: navigateCount,
		Hint:          DefaultChallengeHint,
	}
}

// IsChallenge reports whether err carries a challenge fault
func IsChallenge(err error) bool {
	var ce *ChallengeError
	return stderrors.As(err, &ce)
}

// IsNotStarted reports whether err is the not-started fault
func IsNotStarted(err error) bool {
	return stderrors.Is(err, ErrNotStarted)
}

// IsFatal checks if an error should halt overall execution.
// Only not-started and challenge faults do; everything else resolves into a result value.
func IsFatal(err error) bool {
	return IsChallenge(err) || IsNotStarted(err)
}

// TypeOf classifies an arbitrary error
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	if IsChallenge(err) {
		return ErrorTypeChallenge
	}
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}
