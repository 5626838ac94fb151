package gate

import (
	"time"

	"riskgate/policy"
)

// DefaultVerificationAge is how long a verification token stays valid.
const DefaultVerificationAge = time.Hour

// Options is the operator configuration the engine evaluates requests with.
type Options struct {
	// Actions is the route table. Later matching rules win.
	Actions policy.Table

	// Hardness is the default challenge difficulty, 1 to 3.
	Hardness int

	// ChallengeEveryone challenges every request that has no policy exception.
	ChallengeEveryone bool

	// BlockCrawlers treats known crawler user agents as suspicious.
	BlockCrawlers bool

	// WithoutCookies reads the verification token from the query string instead of a cookie.
	WithoutCookies bool

	// VerificationAge is how long a verification token is accepted.
	VerificationAge time.Duration

	// FailOpen treats a failed reputation lookup as clean instead of suspicious.
	FailOpen bool
}

func (o Options) withDefaults() Options {
	if o.Hardness < 1 || o.Hardness > 3 {
		o.Hardness = 2
	}
	if o.VerificationAge <= 0 {
		o.VerificationAge = DefaultVerificationAge
	}
	return o
}
