package main

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"
	"github.com/vocdoni/zkvote/log"
	"github.com/vocdoni/zkvote/web3"
)

// Small ledger inspection tool: prints the proposals of a voting contract and,
// optionally, sends an initiateTally transaction for one of them.
func main() {
	rpcs := flag.String("rpcs", "https://sepolia.gateway.tenderly.co", "comma separated web3 rpc endpoints")
	voting := flag.String("voting", "", "voting contract address")
	feeOracle := flag.String("feeOracle", "", "co-processor fee oracle address")
	privKey := flag.String("privkey", "", "private key to use for the Ethereum account (only for -tally)")
	tally := flag.Int64("tally", -1, "initiate the tally of this proposal id")
	flag.Parse()
	log.Init("debug", "stdout", nil)

	endpoints := strings.Split(*rpcs, ",")
	contracts, err := web3.NewContracts(&web3.Addresses{
		Voting:    common.HexToAddress(*voting),
		FeeOracle: common.HexToAddress(*feeOracle),
	}, endpoints[0])
	if err != nil {
		log.Fatal(err)
	}
	log.Infow("contracts initialized", "chainId", contracts.ChainID)

	for i := 1; i < len(endpoints); i++ {
		if err := contracts.AddWeb3Endpoint(endpoints[i]); err != nil {
			log.Warnw("failed to add endpoint", "rpc", endpoints[i], "err", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fee, err := contracts.BaseFee(ctx)
	if err != nil {
		log.Fatal(err)
	}
	count, err := contracts.ProposalCount(ctx)
	if err != nil {
		log.Fatal(err)
	}
	log.Infow("ledger status", "proposals", count, "baseFee", fee.String())
	for i := uint64(0); i < count; i++ {
		p, err := contracts.Proposal(ctx, new(big.Int).SetUint64(i))
		if err != nil {
			log.Errorw(err, "failed to read proposal")
			continue
		}
		log.Infow("proposal", "id", i, "data", p.String())
	}

	if *tally < 0 {
		return
	}
	if err := contracts.SetAccountPrivateKey(*privKey); err != nil {
		log.Fatal(err)
	}
	hash, err := contracts.InitiateTally(ctx, big.NewInt(*tally))
	if err != nil {
		log.Fatal(err)
	}
	log.Infow("tally initiated, waiting for the transaction", "hash", hash.Hex())
	if err := contracts.WaitTx(ctx, hash); err != nil {
		log.Fatal(err)
	}
	log.Infow("tally transaction mined", "hash", hash.Hex())
}
