package client

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"
	"github.com/vocdoni/zkvote/api"
	"github.com/vocdoni/zkvote/auth"
	"github.com/vocdoni/zkvote/coprocessor"
	"github.com/vocdoni/zkvote/identity"
	"github.com/vocdoni/zkvote/session"
	"github.com/vocdoni/zkvote/storage"
	"github.com/vocdoni/zkvote/util"
	"github.com/vocdoni/zkvote/web3"
)

type acceptAll struct{}

func (acceptAll) Verify(context.Context, *identity.Submission) (*identity.Result, error) {
	return &identity.Result{
		IsValidDetails: identity.ValidDetails{IsValid: true, IsMinimumAgeValid: true, IsOfacValid: true},
		DiscloseOutput: json.RawMessage(`{"nationality":"ESP"}`),
	}, nil
}

var submission = map[string]any{
	"attestationId":   1,
	"proof":           map[string]any{"a": []string{"1", "2"}},
	"publicSignals":   []string{"3", "4"},
	"userContextData": "0xdeadbeef",
}

func newTestNode(c *qt.C) (*httptest.Server, *web3.MockContracts) {
	issuer, err := auth.NewIssuer("client-test-secret", auth.DefaultTTL)
	c.Assert(err, qt.IsNil)
	backend := coprocessor.NewMockBackend()
	ledger := web3.NewMockContracts(backend)
	stg := storage.New(memdb.New())
	c.Cleanup(stg.Close)
	a, err := api.New(&api.APIConfig{
		Storage:     stg,
		Sessions:    session.NewMemoryStore(session.DefaultTTL),
		Issuer:      issuer,
		Verifier:    acceptAll{},
		Ledger:      ledger,
		Encryptor:   coprocessor.New(backend),
		Development: true,
	})
	c.Assert(err, qt.IsNil)
	srv := httptest.NewServer(a.Router())
	c.Cleanup(srv.Close)
	return srv, ledger
}

func TestClientFlow(t *testing.T) {
	c := qt.New(t)
	srv, ledger := newTestNode(c)
	// the clock is read by the server goroutines
	var now atomic.Int64
	now.Store(time.Now().UnixNano())
	ledger.SetClock(func() time.Time { return time.Unix(0, now.Load()) })

	cli, err := New(srv.URL)
	c.Assert(err, qt.IsNil)
	c.Assert(cli.Credential(), qt.Equals, "")

	// gated calls are redirected to the verify page without a credential
	_, status, err := cli.Request(HTTPGET, nil, nil, api.ProposalsEndpoint)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusTemporaryRedirect)
	_, err = cli.Proposal(big.NewInt(0))
	c.Assert(err, qt.ErrorMatches, "(?s)API error: 307.*")

	sessionID := util.RandomHex(16)
	data, status, err := cli.Request(HTTPPOST, submission, []string{api.SessionQueryParam, sessionID}, api.VerifyEndpoint)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusOK, qt.Commentf("body: %s", data))
	c.Assert(cli.Claim(sessionID), qt.IsNil)
	c.Assert(cli.Credential(), qt.Not(qt.Equals), "")
	// a session is claimed only once
	c.Assert(cli.Claim(sessionID), qt.ErrorMatches, "(?s)API error: 403.*")

	_, err = cli.CreateProposal(&api.NewProposal{
		Title:    "Lunch",
		Options:  []string{"pizza", "sushi", "ramen"},
		Deadline: time.Unix(0, now.Load()).Add(time.Hour),
	})
	c.Assert(err, qt.IsNil)

	info, err := cli.Proposal(big.NewInt(0))
	c.Assert(err, qt.IsNil)
	c.Assert(info.Options, qt.DeepEquals, []string{"pizza", "sushi", "ramen"})
	c.Assert(info.Fee.Total.String(), qt.Equals, "1000")

	receipt, err := cli.CastVote(big.NewInt(0), 2)
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.Fee.String(), qt.Equals, "1000")
	c.Assert(receipt.TxHash, qt.Not(qt.Equals), common.Hash{})

	_, err = cli.CastVote(big.NewInt(0), 3)
	c.Assert(err, qt.ErrorMatches, "(?s)API error: 400.*")

	// another voter sends the prepared ballot from its own wallet
	voter := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	ballot, err := cli.PrepareBallot(big.NewInt(0), voter, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(ballot.Voter, qt.Equals, voter)
	c.Assert(ballot.Fee.Total.String(), qt.Equals, "1000")
	_, err = ledger.CastVoteFrom(context.Background(), voter, big.NewInt(0), ballot.Ciphertext, ballot.Fee.Total.MathBigInt())
	c.Assert(err, qt.IsNil)

	_, err = cli.Results(big.NewInt(0))
	c.Assert(err, qt.ErrorMatches, "(?s)API error: 409.*")

	now.Add(int64(2 * time.Hour))
	_, err = cli.InitiateTally(big.NewInt(0))
	c.Assert(err, qt.IsNil)

	result, err := cli.Results(big.NewInt(0))
	c.Assert(err, qt.IsNil)
	c.Assert(result.Counts, qt.HasLen, 3)
	c.Assert(result.Counts[2].String(), qt.Equals, "1")
	c.Assert(result.Counts[0].String(), qt.Equals, "1")
}

func TestClientUnreachable(t *testing.T) {
	c := qt.New(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_, err := New(url)
	c.Assert(err, qt.ErrorMatches, "http request failed: .*")
}

func TestProposalPath(t *testing.T) {
	c := qt.New(t)
	c.Assert(proposalPath(api.BallotsEndpoint, big.NewInt(42)), qt.Equals, "/vote/proposals/42/ballots")
}
