package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/zkvote/api"
	"github.com/vocdoni/zkvote/log"
	"github.com/vocdoni/zkvote/types"
)

const (
	// HTTPGET is the method string used for calling Request()
	HTTPGET = http.MethodGet
	// HTTPPOST is the method string used for calling Request()
	HTTPPOST = http.MethodPost

	errCodeNot200 = "API error"

	// DefaultRetries is the number of attempts of a request when the
	// connection fails. Requests are not repeated by default: a ballot
	// submission must never be sent twice by the client on its own.
	DefaultRetries = 1
	// DefaultTimeout is the default timeout for the HTTP client
	DefaultTimeout = 3 * time.Minute
)

// HTTPclient is the zkvote node API HTTP client. It keeps the cookies set by
// the node, so once a session is claimed the credential is sent along with
// every gated request. Redirects are not followed, a gate redirect is
// returned to the caller as is.
type HTTPclient struct {
	c       *http.Client
	host    *url.URL
	retries int
}

// New connects to the API host and returns the handle
func New(host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	tr := &http.Transport{
		IdleConnTimeout:    DefaultTimeout,
		DisableCompression: false,
		WriteBufferSize:    1 * 1024 * 1024, // 1 MiB
		ReadBufferSize:     1 * 1024 * 1024, // 1 MiB
	}
	c := &HTTPclient{
		c: &http.Client{
			Transport: tr,
			Timeout:   DefaultTimeout,
			Jar:       jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		host:    hostURL,
		retries: DefaultRetries,
	}
	log.Debugw("http client created", "host", hostURL.String())
	data, status, err := c.Request(HTTPGET, nil, nil, api.PingEndpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return c, nil
}

// SetRetries configures the number of attempts for the HTTP client.
func (c *HTTPclient) SetRetries(n int) {
	c.retries = max(n, 1)
}

// SetTimeout configures the timeout for the HTTP client.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
	if tr, ok := c.c.Transport.(*http.Transport); ok {
		tr.ResponseHeaderTimeout = d
	}
}

// Credential returns the credential cookie value held by the client, if any.
func (c *HTTPclient) Credential() string {
	for _, cookie := range c.c.Jar.Cookies(c.host) {
		if cookie.Name == api.CookieName {
			return cookie.Value
		}
	}
	return ""
}

// Request performs a `method` type raw request to the endpoint specified in urlPath parameter.
// Method is either GET or POST. If POST, a JSON struct should be attached.  Returns the response,
// the status code and an error.
//
// Supports query parameters via `params` slice. If the slice is not empty, it should contain pairs of strings;
// the first element of each pair is the key, and the second element is the value.
func (c *HTTPclient) Request(method string, jsonBody any, params []string, urlPath ...string) ([]byte, int, error) {
	var (
		body []byte
		err  error
	)

	// Marshal the JSON body if provided.
	if jsonBody != nil {
		body, err = json.Marshal(jsonBody)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}

	// Parse the base host URL
	u, err := url.Parse(c.host.String())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse host URL: %w", err)
	}

	// Join path segments
	u.Path = path.Join(u.Path, path.Join(urlPath...))

	// Process query parameters from the params slice.
	// Expecting even-length slice: [key1, val1, key2, val2, ...]
	// If length is odd, the last parameter without a pair will be ignored.
	if len(params) > 0 {
		values := url.Values{}
		for i := 0; i < len(params)-1; i += 2 {
			values.Set(params[i], params[i+1])
		}
		u.RawQuery = values.Encode()
	}

	// Prepare headers
	headers := http.Header{}
	if jsonBody != nil {
		headers.Set("Content-Type", "application/json")
		headers.Set("Accept", "application/json")
	}

	// Log the request details, truncating body if large
	log.Debugw("http client request",
		"type", method,
		"url", u.String(),
		"body", func() string {
			if len(body) > 512 {
				return string(body[:512]) + "..."
			}
			return string(body)
		}(),
	)

	var resp *http.Response
	for i := 1; i <= c.retries; i++ {
		// Create a fresh request each attempt
		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}
		req, rerr := http.NewRequest(method, u.String(), reqBody)
		if rerr != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", rerr)
		}
		req.Header = headers

		resp, err = c.c.Do(req)
		if err == nil {
			break
		}
		log.Warnw("http request failed", "error", err.Error(), "attempt", i, "retries", c.retries)
		if i < c.retries {
			time.Sleep(500 * time.Millisecond)
		}
	}
	if err != nil {
		return nil, 0, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// Claim exchanges a verified session for the credential cookie.
func (c *HTTPclient) Claim(sessionID string) error {
	data, status, err := c.Request(HTTPPOST, &api.ClaimRequest{SessionID: sessionID}, nil, api.ClaimEndpoint)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return nil
}

// CreateProposal sends a createProposal transaction and returns its hash.
func (c *HTTPclient) CreateProposal(p *api.NewProposal) (common.Hash, error) {
	return c.postTx(p, api.ProposalsEndpoint)
}

// InitiateTally sends the initiateTally transaction of a proposal and
// returns its hash once mined.
func (c *HTTPclient) InitiateTally(id *big.Int) (common.Hash, error) {
	return c.postTx(nil, proposalPath(api.TallyEndpoint, id))
}

func (c *HTTPclient) postTx(body any, urlPath string) (common.Hash, error) {
	data, status, err := c.Request(HTTPPOST, body, nil, urlPath)
	if err != nil {
		return common.Hash{}, err
	}
	if status != http.StatusOK {
		return common.Hash{}, fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	tx := &api.TxResponse{}
	if err := json.Unmarshal(data, tx); err != nil {
		return common.Hash{}, fmt.Errorf("could not decode transaction: %w", err)
	}
	return tx.TxHash, nil
}

// Proposal returns a proposal with its options and current fee.
func (c *HTTPclient) Proposal(id *big.Int) (*api.ProposalInfo, error) {
	info := &api.ProposalInfo{}
	if err := c.getJSON(info, proposalPath(api.ProposalEndpoint, id)); err != nil {
		return nil, err
	}
	return info, nil
}

// CastVote submits a ballot for option on the proposal.
func (c *HTTPclient) CastVote(id *big.Int, option uint64) (*types.VoteReceipt, error) {
	data, status, err := c.Request(HTTPPOST, &api.Ballot{Option: &option}, nil, proposalPath(api.BallotsEndpoint, id))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	receipt := &types.VoteReceipt{}
	if err := json.Unmarshal(data, receipt); err != nil {
		return nil, fmt.Errorf("could not decode receipt: %w", err)
	}
	return receipt, nil
}

// PrepareBallot encrypts option for voter without submitting it. The voter's
// wallet sends the returned ciphertext with the quoted fee.
func (c *HTTPclient) PrepareBallot(id *big.Int, voter common.Address, option uint64) (*types.PreparedBallot, error) {
	data, status, err := c.Request(HTTPPOST, &api.Ballot{Option: &option, Voter: &voter}, nil, proposalPath(api.BallotsEndpoint, id))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	ballot := &types.PreparedBallot{}
	if err := json.Unmarshal(data, ballot); err != nil {
		return nil, fmt.Errorf("could not decode prepared ballot: %w", err)
	}
	return ballot, nil
}

// Results reveals the tally of the proposal.
func (c *HTTPclient) Results(id *big.Int) (*types.TallyResult, error) {
	result := &types.TallyResult{}
	if err := c.getJSON(result, proposalPath(api.ResultsEndpoint, id)); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPclient) getJSON(out any, urlPath string) error {
	data, status, err := c.Request(HTTPGET, nil, nil, urlPath)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return json.Unmarshal(data, out)
}

// proposalPath fills the proposal id of an endpoint pattern.
func proposalPath(endpoint string, id *big.Int) string {
	return strings.Replace(endpoint, "{"+api.ProposalURLParam+"}", id.String(), 1)
}
