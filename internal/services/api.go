package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/nowplaying/internal/shared"
)

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// readResponse drains and closes resp.
func readResponse(resp *http.Response) (*APIResponse, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &shared.ProviderError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}

// Decode unmarshals the body into v, reporting failures as [shared.ErrParse].
func (r *APIResponse) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return r.Error(fmt.Errorf("%w: %v", shared.ErrParse, err))
	}
	return nil
}

// Error wraps the response into a [shared.ProviderError] with cause err, which may be nil.
func (r *APIResponse) Error(err error) *shared.ProviderError {
	return &shared.ProviderError{StatusCode: r.StatusCode, Body: string(r.Body), Err: err}
}
