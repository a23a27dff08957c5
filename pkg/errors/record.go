package errors

import stderrors "errors"

// FailureRecord is the machine-parsable shape every top-level entry point emits on failure
type FailureRecord struct {
	Status        string    `json:"status"`
	ErrorType     ErrorType `json:"error_type"`
	Message       string    `json:"message"`
	CaptchaURL    string    `json:"captcha_url,omitempty"`
	NavigateCount int       `json:"navigate_count,omitempty"`
	Hint          string    `json:"hint,omitempty"`
}

// NewFailureRecord converts any error into a structured failure record
func NewFailureRecord(err error) FailureRecord {
	if err == nil {
		return FailureRecord{Status: "error", ErrorType: ErrorTypeUnknown, Message: "unknown error"}
	}

	record := FailureRecord{
		Status:    "error",
		ErrorType: TypeOf(err),
		Message:   err.Error(),
	}

	var ce *ChallengeError
	if stderrors.As(err, &ce) {
		record.Status = "captcha"
		record.CaptchaURL = ce.URL
		record.NavigateCount = ce.NavigateCount
		record.Hint = ce.Hint
	}

	return record
}
