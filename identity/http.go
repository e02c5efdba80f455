package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vocdoni/zkvote/log"
)

// DefaultTimeout bounds a single verification request.
const DefaultTimeout = 30 * time.Second

// HTTPVerifier forwards submissions to the provider verification endpoint.
type HTTPVerifier struct {
	c          *http.Client
	endpoint   string
	scope      string
	minimumAge int
}

type verifyRequest struct {
	*Submission
	Scope      string `json:"scope"`
	MinimumAge int    `json:"minimumAge"`
}

// NewHTTPVerifier returns a verifier for the given endpoint. Empty scope and
// zero minimum age take the defaults.
func NewHTTPVerifier(endpoint, scope string, minimumAge int) (*HTTPVerifier, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("missing identity verifier endpoint")
	}
	if scope == "" {
		scope = DefaultScope
	}
	if minimumAge == 0 {
		minimumAge = DefaultMinimumAge
	}
	return &HTTPVerifier{
		c:          &http.Client{Timeout: DefaultTimeout},
		endpoint:   endpoint,
		scope:      scope,
		minimumAge: minimumAge,
	}, nil
}

// Verify posts the submission and decodes the verifier result. The result is
// returned even when the proof is not valid; errors only mean the verifier
// could not produce a verdict.
func (v *HTTPVerifier) Verify(ctx context.Context, s *Submission) (*Result, error) {
	body, err := json.Marshal(&verifyRequest{Submission: s, Scope: v.scope, MinimumAge: v.minimumAge})
	if err != nil {
		return nil, fmt.Errorf("failed to encode verify request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log.Debugw("identity verify request", "endpoint", v.endpoint, "bytes", len(body))
	resp, err := v.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, bytes.TrimSpace(data))
	}
	result := &Result{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}
	return result, nil
}
