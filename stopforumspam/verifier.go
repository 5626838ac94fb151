package stopforumspam

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"riskgate/reputationcache"
)

// VerdictCache stores verdicts between requests.
type VerdictCache interface {
	Lookup(clientID string, now time.Time) reputationcache.Verdict
	Record(clientID string, spammer bool, now time.Time) error
}

// Querier asks the external service about a client.
type Querier interface {
	Query(ctx context.Context, clientID string) (bool, error)
}

// Verifier answers from the cache when it can and otherwise asks the service once per client,
// no matter how many requests for that client are waiting.
type Verifier struct {
	logger  zerolog.Logger
	cache   VerdictCache
	querier Querier
	group   singleflight.Group
	now     func() time.Time
}

// NewVerifier creates a Verifier.
func NewVerifier(logger zerolog.Logger, cache VerdictCache, querier Querier) *Verifier {
	return &Verifier{logger: logger, cache: cache, querier: querier, now: time.Now}
}

// IsSpammer returns the verdict for clientID. Errors wrap ErrExternalService, and nothing is cached for them.
func (v *Verifier) IsSpammer(ctx context.Context, clientID string) (spammer bool, err error) {
	switch v.cache.Lookup(clientID, v.now()) {
	case reputationcache.Spammer:
		spammer = true
		return
	case reputationcache.Clean:
		return
	}

	// The shared call must not be cut short because the first waiting request went away.
	ch := v.group.DoChan(clientID, func() (interface{}, error) {
		return v.queryAndRecord(context.WithoutCancel(ctx), clientID)
	})

	select {
	case <-ctx.Done():
		err = fmt.Errorf("%w: %v", ErrExternalService, ctx.Err())
		return
	case res := <-ch:
		if res.Err != nil {
			err = res.Err
			return
		}
		spammer = res.Val.(bool)
		return
	}
}

func (v *Verifier) queryAndRecord(ctx context.Context, clientID string) (interface{}, error) {
	spammer, err := v.querier.Query(ctx, clientID)
	if err != nil {
		return false, err
	}

	if err := v.cache.Record(clientID, spammer, v.now()); err != nil {
		v.logger.Warn().Err(err).Msg("Failed to persist reputation verdict")
	}
	return spammer, nil
}
