package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/vocdoni/zkvote/log"
)

// Client struct implements bind.ContractBackend and bind.DeployBackend over a
// Web3Pool for a specific chainID. Every call goes to the next available
// endpoint of the pool. A call that fails at transport level disables the
// endpoint used, but the call itself is not retried.
type Client struct {
	w3p     *Web3Pool
	chainID uint64
}

// EthClient method returns the ethclient.Client of the next available
// endpoint for the chainID of the Client.
func (c *Client) EthClient() (*ethclient.Client, error) {
	endpoint, err := c.w3p.Endpoint(c.chainID)
	if err != nil {
		return nil, fmt.Errorf("error getting endpoint for chainID %d: %w", c.chainID, err)
	}
	return endpoint.client, nil
}

// call runs fn against the next endpoint. Errors returned by the node itself
// (reverts, nonce errors, not found) keep the endpoint enabled, anything else
// disables it for the following calls.
func (c *Client) call(ctx context.Context, method string, fn func(*ethclient.Client) error) error {
	endpoint, err := c.w3p.Endpoint(c.chainID)
	if err != nil {
		return fmt.Errorf("error getting endpoint for chainID %d: %w", c.chainID, err)
	}
	err = fn(endpoint.client)
	if err == nil || !transportFailure(ctx, err) {
		return err
	}
	log.Warnw("disabling web3 endpoint",
		"chainID", c.chainID,
		"uri", endpoint.URI,
		"method", method,
		"error", err.Error())
	c.w3p.DisableEndpoint(c.chainID, endpoint.URI)
	return err
}

func transportFailure(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ethereum.NotFound) {
		return false
	}
	var rpcErr gethrpc.Error
	return !errors.As(err, &rpcErr)
}

// CodeAt method wraps the CodeAt method from the ethclient.Client.
func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) (code []byte, err error) {
	err = c.call(ctx, "CodeAt", func(cli *ethclient.Client) (err error) {
		code, err = cli.CodeAt(ctx, account, blockNumber)
		return
	})
	return
}

// CallContract method wraps the CallContract method from the ethclient.Client.
func (c *Client) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) (out []byte, err error) {
	err = c.call(ctx, "CallContract", func(cli *ethclient.Client) (err error) {
		out, err = cli.CallContract(ctx, call, blockNumber)
		return
	})
	return
}

// HeaderByNumber method wraps the HeaderByNumber method from the ethclient.Client.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (header *types.Header, err error) {
	err = c.call(ctx, "HeaderByNumber", func(cli *ethclient.Client) (err error) {
		header, err = cli.HeaderByNumber(ctx, number)
		return
	})
	return
}

// PendingCodeAt method wraps the PendingCodeAt method from the ethclient.Client.
func (c *Client) PendingCodeAt(ctx context.Context, account common.Address) (code []byte, err error) {
	err = c.call(ctx, "PendingCodeAt", func(cli *ethclient.Client) (err error) {
		code, err = cli.PendingCodeAt(ctx, account)
		return
	})
	return
}

// PendingNonceAt method wraps the PendingNonceAt method from the ethclient.Client.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (nonce uint64, err error) {
	err = c.call(ctx, "PendingNonceAt", func(cli *ethclient.Client) (err error) {
		nonce, err = cli.PendingNonceAt(ctx, account)
		return
	})
	return
}

// SuggestGasPrice method wraps the SuggestGasPrice method from the ethclient.Client.
func (c *Client) SuggestGasPrice(ctx context.Context) (price *big.Int, err error) {
	err = c.call(ctx, "SuggestGasPrice", func(cli *ethclient.Client) (err error) {
		price, err = cli.SuggestGasPrice(ctx)
		return
	})
	return
}

// SuggestGasTipCap method wraps the SuggestGasTipCap method from the ethclient.Client.
func (c *Client) SuggestGasTipCap(ctx context.Context) (tip *big.Int, err error) {
	err = c.call(ctx, "SuggestGasTipCap", func(cli *ethclient.Client) (err error) {
		tip, err = cli.SuggestGasTipCap(ctx)
		return
	})
	return
}

// EstimateGas method wraps the EstimateGas method from the ethclient.Client.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (gas uint64, err error) {
	err = c.call(ctx, "EstimateGas", func(cli *ethclient.Client) (err error) {
		gas, err = cli.EstimateGas(ctx, msg)
		return
	})
	return
}

// SendTransaction method wraps the SendTransaction method from the ethclient.Client.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.call(ctx, "SendTransaction", func(cli *ethclient.Client) error {
		return cli.SendTransaction(ctx, tx)
	})
}

// FilterLogs method wraps the FilterLogs method from the ethclient.Client.
func (c *Client) FilterLogs(ctx context.Context, query ethereum.FilterQuery) (logs []types.Log, err error) {
	err = c.call(ctx, "FilterLogs", func(cli *ethclient.Client) (err error) {
		logs, err = cli.FilterLogs(ctx, query)
		return
	})
	return
}

// SubscribeFilterLogs method wraps the SubscribeFilterLogs method from the ethclient.Client.
func (c *Client) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (sub ethereum.Subscription, err error) {
	err = c.call(ctx, "SubscribeFilterLogs", func(cli *ethclient.Client) (err error) {
		sub, err = cli.SubscribeFilterLogs(ctx, query, ch)
		return
	})
	return
}

// TransactionReceipt method wraps the TransactionReceipt method from the ethclient.Client.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (receipt *types.Receipt, err error) {
	err = c.call(ctx, "TransactionReceipt", func(cli *ethclient.Client) (err error) {
		receipt, err = cli.TransactionReceipt(ctx, txHash)
		return
	})
	return
}

// BlockNumber method wraps the BlockNumber method from the ethclient.Client.
func (c *Client) BlockNumber(ctx context.Context) (n uint64, err error) {
	err = c.call(ctx, "BlockNumber", func(cli *ethclient.Client) (err error) {
		n, err = cli.BlockNumber(ctx)
		return
	})
	return
}

// ChainID returns the chainID the client was created for.
func (c *Client) ChainID() uint64 {
	return c.chainID
}
