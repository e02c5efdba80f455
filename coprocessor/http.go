package coprocessor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/zkvote/log"
	"github.com/vocdoni/zkvote/types"
)

const (
	// EncryptEndpoint is the co-processor gateway path for encryption.
	EncryptEndpoint = "/encrypt"
	// RevealEndpoint is the co-processor gateway path for attested reveals.
	RevealEndpoint = "/reveal"

	// DefaultTimeout is the default timeout of a co-processor request.
	DefaultTimeout = 30 * time.Second

	maxResponseSize = 4 << 20
)

type encryptRequest struct {
	Value          *types.BigInt  `json:"value"`
	AccountAddress common.Address `json:"accountAddress"`
	DappAddress    common.Address `json:"dappAddress"`
	HandleType     string         `json:"handleType"`
}

type encryptResponse struct {
	Ciphertext types.HexBytes `json:"ciphertext"`
}

type revealRequest struct {
	Handles []types.HexBytes `json:"handles"`
}

type revealResponse struct {
	Results []*Reveal `json:"results"`
}

// HTTPBackend talks JSON to a co-processor gateway. Requests are never
// retried.
type HTTPBackend struct {
	c    *http.Client
	host *url.URL
}

// NewHTTPBackend returns a backend for the gateway at host.
func NewHTTPBackend(host string) (*HTTPBackend, error) {
	if host == "" {
		return nil, fmt.Errorf("missing co-processor url")
	}
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid co-processor url: %w", err)
	}
	return &HTTPBackend{
		c:    &http.Client{Timeout: DefaultTimeout},
		host: hostURL,
	}, nil
}

// SetTimeout configures the timeout of every request.
func (b *HTTPBackend) SetTimeout(d time.Duration) {
	b.c.Timeout = d
}

func (b *HTTPBackend) Encrypt(ctx context.Context, value *big.Int, account, dapp common.Address) (types.HexBytes, error) {
	resp := &encryptResponse{}
	if err := b.post(ctx, EncryptEndpoint, &encryptRequest{
		Value:          types.NewBigInt(value),
		AccountAddress: account,
		DappAddress:    dapp,
		HandleType:     HandleTypeUint256,
	}, resp); err != nil {
		return nil, err
	}
	return resp.Ciphertext, nil
}

func (b *HTTPBackend) AttestedReveal(ctx context.Context, handles []types.HexBytes) ([]*Reveal, error) {
	resp := &revealResponse{}
	if err := b.post(ctx, RevealEndpoint, &revealRequest{Handles: handles}, resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (b *HTTPBackend) post(ctx context.Context, endpoint string, reqBody, respBody any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	u := *b.host
	u.Path = path.Join(u.Path, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log.Debugw("co-processor request", "url", u.String(), "bytes", len(body))
	resp, err := b.c.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d (%s)", ErrUnavailable, endpoint, resp.StatusCode, bytes.TrimSpace(data))
	}
	if err := json.Unmarshal(data, respBody); err != nil {
		return fmt.Errorf("%w: malformed %s response: %v", ErrUnavailable, endpoint, err)
	}
	return nil
}
