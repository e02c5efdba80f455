package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"

	// VerifyEndpoint receives the identity proof from the identity provider,
	// server to server. The browser session id comes in the "session" query
	// parameter.
	VerifyEndpoint = "/verify"
	// ClaimEndpoint exchanges a verified session id for the credential cookie.
	ClaimEndpoint = "/verify/claim"

	// VoteEndpoint is the root of the voting area protected by the access gate.
	VoteEndpoint = "/vote"
	// ProposalsEndpoint lists (GET) and creates (POST) proposals.
	ProposalsEndpoint = VoteEndpoint + "/proposals"
	// ProposalEndpoint returns a proposal with its options and current fee.
	ProposalURLParam = "proposalId"
	ProposalEndpoint = ProposalsEndpoint + "/{" + ProposalURLParam + "}"
	// VotedEndpoint reports whether an address already voted on a proposal.
	VotedEndpoint = ProposalEndpoint + "/voted"
	// BallotsEndpoint casts an encrypted ballot.
	BallotsEndpoint = ProposalEndpoint + "/ballots"
	// TallyEndpoint initiates the on-chain tally.
	TallyEndpoint = ProposalEndpoint + "/tally"
	// ResultsEndpoint reveals the tally.
	ResultsEndpoint = ProposalEndpoint + "/results"
	// ReceiptsEndpoint lists the vote receipts recorded by this node.
	ReceiptsEndpoint = ProposalEndpoint + "/receipts"
)
