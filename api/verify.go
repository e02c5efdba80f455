package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/vocdoni/zkvote/identity"
	"github.com/vocdoni/zkvote/log"
)

// maxSessionIDSize bounds the client generated session identifiers.
const maxSessionIDSize = 256

// verify receives the identity proof from the identity provider. On a valid
// proof the session of the query string is marked as verified, so the
// browser can claim its credential.
// POST /verify?session={sessionId}
func (a *API) verify(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get(SessionQueryParam)
	if len(sessionID) > maxSessionIDSize {
		ErrMissingSessionID.Withf("session id longer than %d bytes", maxSessionIDSize).Write(w)
		return
	}
	submission := &identity.Submission{}
	if err := json.NewDecoder(r.Body).Decode(submission); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if missing := submission.MissingFields(); len(missing) > 0 {
		log.Debugw("verification callback with missing fields", "session", sessionID, "missing", missing)
		ErrMissingProofFields.With(strings.Join(missing, ", ")).Write(w)
		return
	}

	result, err := a.verifier.Verify(r.Context(), submission)
	if err != nil {
		log.Errorw(err, "identity verifier failed")
		ErrIdentityVerifierFailed.WithErr(err).Write(w)
		return
	}
	if !result.IsValidDetails.IsValid {
		log.Infow("identity proof rejected",
			"session", sessionID,
			"minimumAge", result.IsValidDetails.IsMinimumAgeValid,
			"ofac", result.IsValidDetails.IsOfacValid)
		details := result.IsValidDetails
		httpWriteJSON(w, &VerifyResponse{Status: statusError, Result: false, Details: &details})
		return
	}

	if sessionID != "" {
		a.sessions.MarkVerified(sessionID)
		log.Infow("session marked verified", "session", sessionID)
	} else {
		log.Infow("identity proof verified without a claimable session")
	}
	httpWriteJSON(w, &VerifyResponse{
		Status:            statusSuccess,
		Result:            true,
		CredentialSubject: result.DiscloseOutput,
	})
}

// claim exchanges a verified session for the credential cookie. A session
// can be claimed once.
// POST /verify/claim
func (a *API) claim(w http.ResponseWriter, r *http.Request) {
	req := &ClaimRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMissingSessionID.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if req.SessionID == "" || len(req.SessionID) > maxSessionIDSize {
		ErrMissingSessionID.Write(w)
		return
	}
	if !a.sessions.Claim(req.SessionID) {
		log.Debugw("session claim rejected", "session", req.SessionID)
		ErrSessionNotVerified.Write(w)
		return
	}

	token, err := a.issuer.Issue(uuid.NewString())
	if err != nil {
		log.Errorw(err, "could not issue credential")
		ErrGenericInternalServerError.Write(w)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.issuer.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.secure,
	})
	log.Infow("session claimed", "session", req.SessionID)
	httpWriteJSON(w, &StatusResponse{Status: statusSuccess, Result: true})
}
