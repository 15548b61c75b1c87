package praxis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Classifier maps a raw failure to the adapter's error taxonomy.
// Replace it with WithClassifier when engine messages change wording.
type Classifier interface {
	Classify(err error, op string) *AIError
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(err error, op string) *AIError

// Classify calls f(err, op).
func (f ClassifierFunc) Classify(err error, op string) *AIError { return f(err, op) }

// DefaultClassifier is ClassifyError as a Classifier.
var DefaultClassifier Classifier = ClassifierFunc(ClassifyError)

// messageRule is one row of the substring decision table.
type messageRule struct {
	substrings []string
	code       ErrorCode
}

// messageRules are checked in order against the lower-cased message; first match wins.
var messageRules = []messageRule{
	{substrings: []string{"timeout"}, code: CodeTimeout},
	{substrings: []string{"not available", "unavailable"}, code: CodeAPIUnavailable},
	{substrings: []string{"rate limit"}, code: CodeRateLimited},
	{substrings: []string{"session"}, code: CodeSessionLost},
}

// ClassifyError is the pure decision table behind DefaultClassifier.
// Typed sentinels are matched before message text. Only API_UNAVAILABLE
// is non-retryable.
func ClassifyError(err error, op string) *AIError {
	if err == nil {
		return nil
	}

	var existing *AIError
	if errors.As(err, &existing) {
		return existing
	}

	var inputErr *InputError
	if errors.As(err, &inputErr) {
		return newAIError(CodeInvalidInput, op, err, false)
	}

	code := classifyTyped(err)
	if code == "" {
		code = classifyMessage(err.Error())
	}
	return newAIError(code, op, err, code != CodeAPIUnavailable)
}

func classifyTyped(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, ErrInvalidResponse):
		return CodeInvalidResponse
	case errors.Is(err, ErrSessionCreate):
		return CodeSessionLost
	case errors.Is(err, ErrCapabilityUnavailable), errors.Is(err, ErrAdapterDestroyed):
		return CodeAPIUnavailable
	}
	return ""
}

func classifyMessage(msg string) ErrorCode {
	lower := strings.ToLower(msg)
	for _, rule := range messageRules {
		for _, s := range rule.substrings {
			if strings.Contains(lower, s) {
				return rule.code
			}
		}
	}
	return CodeUnknown
}

func newAIError(code ErrorCode, op string, err error, retryable bool) *AIError {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	if op != "" {
		msg = fmt.Sprintf("%s: %s", op, msg)
	}
	return &AIError{
		Code:      code,
		Message:   msg,
		Retryable: retryable,
		Err:       err,
		Timestamp: time.Now().UTC(),
	}
}
