package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// MetricsEndpoint exposes the relay metrics in the Prometheus format
	MetricsEndpoint = "/metrics"
	// PostReviewEndpoint is the endpoint for submitting a ballot with its
	// membership proof
	PostReviewEndpoint = "/post-review"
	// GetVoteEndpoint is the endpoint to get a ballot envelope by its
	// encrypted vote, sent in the VoteHeader
	GetVoteEndpoint = "/get-vote"
	// AddMemberEndpoint is the endpoint for adding an identity commitment to
	// a group
	AddMemberEndpoint = "/add-member"
	// SetGroupPubKeyEndpoint and GetGroupPubKeyEndpoint publish and return
	// the public key of a group
	SetGroupPubKeyEndpoint = "/set-group-pubkey"
	GetGroupPubKeyEndpoint = "/get-group-pubkey"
	// SetGroupPrivKeyEndpoint and GetGroupPrivKeyEndpoint reveal and return
	// the private key of a group
	SetGroupPrivKeyEndpoint = "/set-group-privkey"
	GetGroupPrivKeyEndpoint = "/get-group-privkey"
)

// Headers used by the fetch endpoints, for requests and responses.
const (
	VoteHeader    = "vote"
	GroupIDHeader = "groupId"
	PubKeyHeader  = "pubkey"
	PrivKeyHeader = "privkey"

	exposeHeadersHeader = "Access-Control-Expose-Headers"
)
