package api

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/zkvote/log"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	// maxProposalIDBits is the size of the uint256 proposal id of the contract.
	maxProposalIDBits = 256
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		log.Errorw(err, "failed to marshal http response")
		ErrMarshalingServerJSONFailed.Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// proposalID parses the decimal proposal id of the request path.
func proposalID(r *http.Request) (*big.Int, bool) {
	id, ok := new(big.Int).SetString(chi.URLParam(r, ProposalURLParam), 10)
	if !ok || id.Sign() < 0 || id.BitLen() > maxProposalIDBits {
		return nil, false
	}
	return id, true
}
