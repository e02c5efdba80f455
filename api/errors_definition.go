//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 403 or 404, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 502, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
// If you notice there's a gap (say, error code 4010, 4011 and 4013 exist, 4012 is missing) DON'T fill in the gap,
// that code was used in the past for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status,
// for example the fact that Code 4045 returns HTTP Status 404 Not Found is just a coincidence
//
// Internal errors never carry the underlying error, it is only logged. Upstream
// errors do, so the user knows what to retry.
var (
	ErrResourceNotFound    = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody       = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedProposalID = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed proposal ID")}
	ErrProposalNotFound    = Error{Code: 40009, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("proposal not found")}
	ErrMissingProofFields  = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("missing required fields")}
	ErrMissingSessionID    = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("missing sessionId")}
	ErrSessionNotVerified  = Error{Code: 40012, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("session not verified or expired")}
	ErrInvalidOption       = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid ballot option")}
	ErrProposalNotTallied  = Error{Code: 40014, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("proposal tally not initiated")}
	ErrInvalidProposal     = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid proposal")}
	ErrMalformedAddress    = Error{Code: 40016, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed address")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrIdentityVerifierFailed     = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("identity verification failed")}
	ErrUpstreamFailure            = Error{Code: 50004, HTTPstatus: http.StatusBadGateway, Err: fmt.Errorf("upstream service failure")}
)
