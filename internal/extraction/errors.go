package extraction

import "fmt"

// ValidationError reports an image rejected by local checks before any
// network call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NetworkError reports a failure to reach the extraction service at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("extraction service unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError reports a non-2xx response from the extraction service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("extraction service error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("extraction service error (status %d): %s", e.StatusCode, e.Body)
}

// MalformedResponseError reports a service response whose payload could not
// be parsed as JSON. A parsable payload with zero expenses is not malformed.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed extraction response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
