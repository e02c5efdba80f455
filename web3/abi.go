package web3

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// votingABIJSON is the interface of the PrivateVoting contract used by the
// node. Vote choices are stored as encrypted handles managed by the
// co-processor; the contract never sees a plaintext option.
const votingABIJSON = `[
  {"type":"function","name":"proposalCount","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getProposal","stateMutability":"view",
   "inputs":[{"name":"proposalId","type":"uint256"}],
   "outputs":[
     {"name":"title","type":"string"},
     {"name":"description","type":"string"},
     {"name":"deadline","type":"uint256"},
     {"name":"creator","type":"address"},
     {"name":"tallied","type":"bool"},
     {"name":"optionCount","type":"uint256"}]},
  {"type":"function","name":"getProposalOptions","stateMutability":"view",
   "inputs":[{"name":"proposalId","type":"uint256"}],
   "outputs":[{"name":"","type":"string[]"}]},
  {"type":"function","name":"hasVoted","stateMutability":"view",
   "inputs":[{"name":"proposalId","type":"uint256"},{"name":"voter","type":"address"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"getTallyHandle","stateMutability":"view",
   "inputs":[{"name":"proposalId","type":"uint256"},{"name":"optionIndex","type":"uint256"}],
   "outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"createProposal","stateMutability":"nonpayable",
   "inputs":[
     {"name":"title","type":"string"},
     {"name":"description","type":"string"},
     {"name":"options","type":"string[]"},
     {"name":"deadline","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"castVote","stateMutability":"payable",
   "inputs":[{"name":"proposalId","type":"uint256"},{"name":"encryptedVote","type":"bytes"}],
   "outputs":[]},
  {"type":"function","name":"initiateTally","stateMutability":"nonpayable",
   "inputs":[{"name":"proposalId","type":"uint256"}],
   "outputs":[]}
]`

// feeOracleABIJSON is the interface of the co-processor executor contract
// that prices every encrypted operation.
const feeOracleABIJSON = `[
  {"type":"function","name":"getFee","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]}
]`

var (
	votingABI    = mustParseABI("PrivateVoting", votingABIJSON)
	feeOracleABI = mustParseABI("FeeOracle", feeOracleABIJSON)
)

func mustParseABI(name, def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid %s abi: %v", name, err))
	}
	return parsed
}
