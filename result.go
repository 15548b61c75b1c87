package praxis

// ResultStatus tags a Result.
type ResultStatus string

const (
	ResultSuccess     ResultStatus = "success"
	ResultError       ResultStatus = "error"
	ResultUnavailable ResultStatus = "unavailable"
)

// Result is the outcome of every adapter operation. Callers branch on
// Status; expected failures never surface as Go errors or panics.
//
// Build values with Success, Failure or Unavailable so exactly one
// variant is populated.
type Result[T any] struct {
	Status   ResultStatus `json:"status"`
	Data     T            `json:"data,omitempty"`
	Fallback bool         `json:"fallback,omitempty"`
	Error    *AIError     `json:"error,omitempty"`
	Reason   string       `json:"reason,omitempty"`
}

// Success wraps data produced by a capability.
func Success[T any](data T) Result[T] {
	return Result[T]{Status: ResultSuccess, Data: data}
}

// FallbackSuccess wraps substitute content from the fallback provider.
func FallbackSuccess[T any](data T) Result[T] {
	return Result[T]{Status: ResultSuccess, Data: data, Fallback: true}
}

// Failure wraps a classified error.
func Failure[T any](err *AIError) Result[T] {
	return Result[T]{Status: ResultError, Error: err}
}

// Unavailable reports an absent capability with no meaningful substitute.
func Unavailable[T any](reason string) Result[T] {
	return Result[T]{Status: ResultUnavailable, Reason: reason}
}

// OK reports whether the result carries data.
func (r Result[T]) OK() bool { return r.Status == ResultSuccess }

// IsError reports whether the result carries an AIError.
func (r Result[T]) IsError() bool { return r.Status == ResultError }

// IsUnavailable reports whether the capability was absent.
func (r Result[T]) IsUnavailable() bool { return r.Status == ResultUnavailable }

// Message returns a displayable line for any variant.
func (r Result[T]) Message() string {
	switch r.Status {
	case ResultSuccess:
		if r.Fallback {
			return "AI capability unavailable, showing bundled content"
		}
		return "ok"
	case ResultError:
		if r.Error != nil {
			return r.Error.Message
		}
		return "unknown error"
	case ResultUnavailable:
		return r.Reason
	default:
		return "unknown result"
	}
}
