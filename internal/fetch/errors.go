package fetch

import "fmt"

// TransientError covers failures where a fresh attempt could succeed:
// connection errors, timeouts, and 429/5xx responses. The retry policy
// picks these up via the Retryable interface.
type TransientError struct {
	URL    string
	Status int // 0 for transport-level failures
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient failure fetching %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("transient failure fetching %s: %v", e.URL, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Retryable() bool { return true }

// StatusError reports a non-retryable HTTP status (4xx other than 429).
// It is terminal for the URL but says nothing about upstream health.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.Status, e.URL)
}

func (e *StatusError) Retryable() bool { return false }

// NonHTMLError reports a response whose declared content type was not
// HTML-compatible. Terminal for the URL only; deliberately not counted as
// a circuit-breaker failure, since a content-type mismatch is a content
// problem, not an upstream-health problem.
type NonHTMLError struct {
	URL         string
	ContentType string
}

func (e *NonHTMLError) Error() string {
	return fmt.Sprintf("non-HTML content (%q) at %s", e.ContentType, e.URL)
}

func (e *NonHTMLError) Retryable() bool { return false }
