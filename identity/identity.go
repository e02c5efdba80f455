// Package identity consumes the external zero-knowledge identity verifier.
// Only its verify call and result shape are used; proof checking happens on
// the provider side.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
)

const (
	// DefaultScope is the application scope registered with the provider.
	DefaultScope = "zk-vote"
	// DefaultMinimumAge is the minimum age disclosed proofs must satisfy.
	DefaultMinimumAge = 18
)

// ErrUnavailable is returned when the verifier cannot be reached or answers
// with an error.
var ErrUnavailable = errors.New("identity verifier unavailable")

// Submission is the proof payload posted by the identity provider. Values are
// kept as raw JSON since only the verifier interprets them.
type Submission struct {
	AttestationID   json.RawMessage `json:"attestationId"`
	Proof           json.RawMessage `json:"proof"`
	PublicSignals   json.RawMessage `json:"publicSignals"`
	UserContextData json.RawMessage `json:"userContextData"`
}

// MissingFields returns the names of the required fields that are absent,
// null or empty.
func (s *Submission) MissingFields() []string {
	var missing []string
	if !present(s.AttestationID) {
		missing = append(missing, "attestationId")
	}
	if !present(s.Proof) {
		missing = append(missing, "proof")
	}
	if !present(s.PublicSignals) {
		missing = append(missing, "publicSignals")
	}
	if !present(s.UserContextData) {
		missing = append(missing, "userContextData")
	}
	return missing
}

// ValidDetails is the verdict of the verifier.
type ValidDetails struct {
	IsValid           bool `json:"isValid"`
	IsMinimumAgeValid bool `json:"isMinimumAgeValid"`
	IsOfacValid       bool `json:"isOfacValid"`
}

// Result is the verifier answer. DiscloseOutput holds the attributes the user
// agreed to disclose.
type Result struct {
	IsValidDetails ValidDetails    `json:"isValidDetails"`
	DiscloseOutput json.RawMessage `json:"discloseOutput,omitempty"`
}

// Verifier checks an identity proof submission.
type Verifier interface {
	Verify(ctx context.Context, s *Submission) (*Result, error)
}

// present reports whether a raw JSON value is set and truthy. Empty objects
// and arrays are present.
func present(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	switch string(v) {
	case "", "null", `""`, "0", "false":
		return false
	}
	return true
}
