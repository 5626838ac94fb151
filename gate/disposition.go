package gate

import "riskgate/policy"

// Decision is the final outcome for a request.
type Decision int

const (
	_ Decision = iota

	// Allow means the request should be passed on to the application.
	Allow

	// Challenge means the client must complete a verification step first.
	Challenge

	// Block means the request should be rejected.
	Block
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Challenge:
		return "challenge"
	case Block:
		return "block"
	}
	return "unknown"
}

// Reasons a request was challenged or blocked.
const (
	ReasonPolicyBlock           = "policy_block"
	ReasonIdentity              = "identity_unavailable"
	ReasonListPrefix            = "list:"
	ReasonChallengeEveryone     = "challenge_everyone"
	ReasonCrawler               = "crawler"
	ReasonSpammer               = "spammer"
	ReasonReputationUnavailable = "reputation_unavailable"
	ReasonNoVerification        = "no_verification"
)

// Disposition is what the host should do with a request.
type Disposition struct {
	Decision Decision
	Action   policy.Action

	// Hardness is the challenge difficulty, 1 to 3. It is 0 unless Decision is Challenge.
	Hardness int

	// Template is the operator's custom page for this route, if any.
	Template string
	Reasons  []string
}

// RiskSignals are collected for one request and discarded after the decision.
type RiskSignals struct {
	ClientIP      string
	UserAgent     string
	IsCrawler     bool
	ListMatches   []string
	Spammer       bool
	IdentityErr   error
	ReputationErr error
}
