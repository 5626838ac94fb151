// Package gate decides per request whether to allow it, challenge the client or block it.
package gate

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"riskgate/policy"
)

// PolicyResolver computes the effective action for a request.
type PolicyResolver interface {
	Resolve(routeKey string, endpointName string, table policy.Table, defaultHardness int) policy.Result
}

// ReputationLists answers which reputation lists contain an address.
type ReputationLists interface {
	Matches(address string) []string
}

// CrawlerDetector classifies user agents.
type CrawlerDetector interface {
	IsCrawler(userAgent string) bool
}

// ReputationVerifier asks the external reputation service about a client, using its cache.
type ReputationVerifier interface {
	IsSpammer(ctx context.Context, clientIP string) (bool, error)
}

// TokenValidator checks verification tokens.
type TokenValidator interface {
	Valid(token string, clientIP string, userAgent string, now time.Time, maxAge time.Duration) bool
}

// Engine evaluates requests. It is safe for concurrent use.
type Engine struct {
	logger        zerolog.Logger
	options       atomic.Pointer[Options]
	resolver      PolicyResolver
	lists         ReputationLists
	crawlers      CrawlerDetector
	verifier      ReputationVerifier
	tokens        TokenValidator
	resultsLogger ResultsLogger
	now           func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(logger zerolog.Logger, o Options, resolver PolicyResolver, lists ReputationLists, crawlers CrawlerDetector, verifier ReputationVerifier, tokens TokenValidator, rl ResultsLogger) *Engine {
	e := &Engine{
		logger:        logger,
		resolver:      resolver,
		lists:         lists,
		crawlers:      crawlers,
		verifier:      verifier,
		tokens:        tokens,
		resultsLogger: rl,
		now:           time.Now,
	}
	e.PutOptions(o)
	return e
}

// PutOptions replaces the options used for requests evaluated from now on.
func (e *Engine) PutOptions(o Options) {
	o = o.withDefaults()
	e.options.Store(&o)
}

// Options returns the options in effect.
func (e *Engine) Options() Options {
	return *e.options.Load()
}

// Evaluate decides what to do with req. Errors never escape; they turn into a challenge.
func (e *Engine) Evaluate(ctx context.Context, req HTTPRequest) (d Disposition) {
	// Create a sub-logger with a transaction ID
	logger := e.logger.With().Str("txid", req.TransactionID()).Logger()

	if logger.Info() != nil {
		logger.Info().Str("path", req.Path()).Msg("Gate got request")
		startTime := time.Now()
		defer func() {
			logger.Info().Dur("timeTaken", time.Since(startTime)).Str("path", req.Path()).Str("decision", d.Decision.String()).Strs("reasons", d.Reasons).Msg("Gate completed request")
		}()
	}

	o := e.options.Load()

	res := e.resolver.Resolve(req.Path(), req.Endpoint(), o.Actions, o.Hardness)
	d.Action = res.Action
	d.Template = res.Template

	switch res.Action {
	case policy.Let:
		d.Decision = Allow
		return
	case policy.Block:
		d.Decision = Block
		d.Reasons = []string{ReasonPolicyBlock}
		e.resultsLogger.RequestBlocked(req, "", d)
		return
	}

	signals := e.collectSignals(req)
	if signals.IdentityErr != nil {
		logger.Debug().Err(signals.IdentityErr).Msg("Could not identify client")
	}

	d.Reasons = staticCriteria(o, signals)

	if len(d.Reasons) == 0 {
		signals.Spammer, signals.ReputationErr = e.verifier.IsSpammer(ctx, signals.ClientIP)
		if signals.ReputationErr != nil {
			logger.Warn().Err(signals.ReputationErr).Msg("Reputation lookup failed")
			e.resultsLogger.ReputationLookupFailed(req, signals.ClientIP, signals.ReputationErr)
			if !o.FailOpen {
				d.Reasons = append(d.Reasons, ReasonReputationUnavailable)
			}
		} else if signals.Spammer {
			d.Reasons = append(d.Reasons, ReasonSpammer)
		}
	}

	if len(d.Reasons) == 0 && e.tokens.Valid(e.tokenFrom(req, o), signals.ClientIP, signals.UserAgent, e.now(), o.VerificationAge) {
		d.Decision = Allow
		return
	}

	if len(d.Reasons) == 0 {
		d.Reasons = []string{ReasonNoVerification}
	}

	d.Decision = Challenge
	d.Hardness = res.Action.Hardness()
	e.resultsLogger.RequestChallenged(req, signals.ClientIP, d)
	return
}

func (e *Engine) collectSignals(req HTTPRequest) (s RiskSignals) {
	var err error
	s.ClientIP, err = ClientIP(req)
	if err != nil {
		s.IdentityErr = err
	}

	s.UserAgent, err = UserAgent(req)
	if err != nil {
		s.IdentityErr = err
	}

	if s.IdentityErr != nil {
		return
	}

	s.IsCrawler = e.crawlers.IsCrawler(s.UserAgent)
	s.ListMatches = e.lists.Matches(s.ClientIP)
	return
}

func staticCriteria(o *Options, s RiskSignals) (reasons []string) {
	if s.IdentityErr != nil {
		reasons = append(reasons, ReasonIdentity)
	}
	for _, id := range s.ListMatches {
		reasons = append(reasons, ReasonListPrefix+id)
	}
	if o.ChallengeEveryone {
		reasons = append(reasons, ReasonChallengeEveryone)
	}
	if o.BlockCrawlers && s.IsCrawler {
		reasons = append(reasons, ReasonCrawler)
	}
	return
}

func (e *Engine) tokenFrom(req HTTPRequest, o *Options) string {
	if o.WithoutCookies {
		return req.QueryArg(TokenName)
	}
	return req.Cookie(TokenName)
}
