package web3

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/zkvote/log"
	"github.com/vocdoni/zkvote/util"
	"github.com/vocdoni/zkvote/web3/rpc"
)

const (
	web3QueryTimeout   = 10 * time.Second
	waitTxPollInterval = 2 * time.Second
)

// Addresses contains the addresses of the contracts deployed in the network.
type Addresses struct {
	Voting    common.Address
	FeeOracle common.Address
}

// Contracts contains the bindings to the deployed contracts.
type Contracts struct {
	ChainID   uint64
	addresses Addresses
	voting    *bind.BoundContract
	feeOracle *bind.BoundContract
	web3pool  *rpc.Web3Pool
	cli       *rpc.Client
	privKey   *ecdsa.PrivateKey
	address   common.Address
}

// NewContracts creates a new Contracts instance with the given web3 endpoint.
func NewContracts(addresses *Addresses, web3rpc string) (*Contracts, error) {
	if addresses == nil || addresses.Voting == (common.Address{}) {
		return nil, fmt.Errorf("missing voting contract address")
	}
	if addresses.FeeOracle == (common.Address{}) {
		return nil, fmt.Errorf("missing fee oracle address")
	}
	w3pool := rpc.NewWeb3Pool()
	chainID, err := w3pool.AddEndpoint(web3rpc)
	if err != nil {
		return nil, fmt.Errorf("failed to add web3 endpoint: %w", err)
	}
	cli, err := w3pool.Client(chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &Contracts{
		ChainID:   chainID,
		addresses: *addresses,
		voting:    bind.NewBoundContract(addresses.Voting, votingABI, cli, cli, cli),
		feeOracle: bind.NewBoundContract(addresses.FeeOracle, feeOracleABI, cli, cli, cli),
		web3pool:  w3pool,
		cli:       cli,
	}, nil
}

// AddWeb3Endpoint adds a new web3 endpoint to the pool. The endpoint must
// serve the same chain as the first one.
func (c *Contracts) AddWeb3Endpoint(web3rpc string) error {
	chainID, err := c.web3pool.AddEndpoint(web3rpc)
	if err != nil {
		return err
	}
	if chainID != c.ChainID {
		c.web3pool.DelEndpoint(web3rpc)
		return fmt.Errorf("endpoint %s serves chain %d, expected %d", web3rpc, chainID, c.ChainID)
	}
	return nil
}

// SetAccountPrivateKey sets the private key to be used for signing transactions.
func (c *Contracts) SetAccountPrivateKey(hexPrivKey string) error {
	var err error
	c.privKey, err = crypto.HexToECDSA(util.TrimHex(hexPrivKey))
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}
	c.address = crypto.PubkeyToAddress(c.privKey.PublicKey)
	return nil
}

// AccountAddress returns the address of the account used to sign transactions.
func (c *Contracts) AccountAddress() common.Address {
	return c.address
}

// VotingAddress returns the address of the voting contract.
func (c *Contracts) VotingAddress() common.Address {
	return c.addresses.Voting
}

// WaitTx blocks until the transaction is included in a block or the context
// is done. A reverted transaction is returned as an error.
func (c *Contracts) WaitTx(ctx context.Context, txHash common.Hash) error {
	ticker := time.NewTicker(waitTxPollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.cli.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil && receipt.Status == ethtypes.ReceiptStatusSuccessful:
			return nil
		case err == nil:
			return fmt.Errorf("transaction %s reverted", txHash.Hex())
		case !errors.Is(err, ethereum.NotFound):
			log.Debugw("waiting for transaction", "hash", txHash.Hex(), "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("transaction %s not mined: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// authTransactOpts helper method creates the transact options with the
// private key configured. It sets the nonce, the gas tip cap and the value to
// transfer. The gas limit is left to estimation. If something goes wrong
// creating the signer, getting the nonce, or getting the gas tip, it returns
// an error.
func (c *Contracts) authTransactOpts(ctx context.Context, value *big.Int) (*bind.TransactOpts, error) {
	if c.privKey == nil {
		return nil, fmt.Errorf("no private key set")
	}
	bChainID := new(big.Int).SetUint64(c.ChainID)
	auth, err := bind.NewKeyedTransactorWithChainID(c.privKey, bChainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx
	qctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	// set the nonce
	log.Debugw("getting nonce", "address", c.address.Hex())
	nonce, err := c.cli.PendingNonceAt(qctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)
	// set the gas tip cap
	if auth.GasTipCap, err = c.cli.SuggestGasTipCap(qctx); err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	if value != nil {
		auth.Value = new(big.Int).Set(value)
	}
	return auth, nil
}

func (c *Contracts) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: c.address}
}
