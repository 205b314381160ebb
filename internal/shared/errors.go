package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Input validation errors
	ErrMissingInput     = fmt.Errorf("missing required input")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrUnknownWidgetKey = fmt.Errorf("unknown widget key")

	// Provider errors
	ErrUnauthorized   = fmt.Errorf("unauthorized at provider")
	ErrProvider       = fmt.Errorf("provider request failed")
	ErrParse          = fmt.Errorf("unparsable provider response")
	ErrMissingField   = fmt.Errorf("missing field in provider response")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")

	// Storage errors
	ErrNotFound        = fmt.Errorf("record not found")
	ErrStorageConflict = fmt.Errorf("storage conflict")
)

// ProviderError describes a failed or unexpected response from Spotify.
//
// StatusCode is zero when no response was received (transport failure or timeout).
// Body holds the raw response body for diagnostics; it never contains credentials
// because only error responses are captured.
type ProviderError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(ErrProvider.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, ", body: %s", e.Body)
	}
	return b.String()
}

// Unwrap exposes both [ErrProvider] and the underlying cause to [errors.Is].
func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProvider}
	}
	return []error{ErrProvider, e.Err}
}

// Details returns the body decoded as JSON when possible, the raw text otherwise.
func (e *ProviderError) Details() any {
	if e.Body == "" {
		if e.Err != nil {
			return e.Err.Error()
		}
		return "No details provided."
	}

	var data any
	if err := json.Unmarshal([]byte(e.Body), &data); err == nil {
		return data
	}
	return e.Body
}

// AsProviderError unwraps err into a [ProviderError].
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
