package prompt

import "fmt"

// FailureError reports a failed fetch. Payload is the text rendered into the
// prompt instead of the content.
type FailureError struct {
	Payload string
	Cause   error
}

// Fail wraps cause with the payload to render in its place.
func Fail(payload string, cause error) error {
	return &FailureError{Payload: payload, Cause: cause}
}

func (e *FailureError) Error() string {
	if e.Cause == nil {
		return e.Payload
	}
	return fmt.Sprintf("%s: %v", e.Payload, e.Cause)
}

func (e *FailureError) Unwrap() error { return e.Cause }
