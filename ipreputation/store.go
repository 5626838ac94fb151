// Package ipreputation loads external reputation feeds and answers membership queries against them.
package ipreputation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrSourceUnavailable is returned when a feed cannot be fetched and there is no local snapshot.
var ErrSourceUnavailable = errors.New("reputation source unavailable")

// DefaultFetchTimeout bounds the download of a single feed URL.
const DefaultFetchTimeout = 60 * time.Second

const maxFeedBytes = 256 << 20

// Store owns the active reputation set of every configured source.
type Store struct {
	logger       zerolog.Logger
	fs           fileSystem
	client       *http.Client
	sources      []Source
	mode         MatchMode
	fetchTimeout time.Duration
	sets         map[string]*atomic.Pointer[ReputationSet]
	writeMutex   sync.Mutex
}

// NewStore creates a store for the given sources. No set is loaded until Load or LoadAll is called.
func NewStore(logger zerolog.Logger, fs fileSystem, sources []Source, mode MatchMode, fetchTimeout time.Duration) *Store {
	if mode == "" {
		mode = MatchExact
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}

	s := &Store{
		logger:       logger,
		fs:           fs,
		client:       &http.Client{},
		sources:      sources,
		mode:         mode,
		fetchTimeout: fetchTimeout,
		sets:         make(map[string]*atomic.Pointer[ReputationSet], len(sources)),
	}
	for _, src := range sources {
		s.sets[src.ID] = &atomic.Pointer[ReputationSet]{}
	}
	return s
}

// Sources returns the configured sources.
func (s *Store) Sources() []Source {
	return s.sources
}

// Load returns the set of src, from its snapshot if there is one, otherwise from the network.
// A freshly fetched set is persisted as the new snapshot.
func (s *Store) Load(ctx context.Context, src Source) (set *ReputationSet, err error) {
	if entries, ok := s.readSnapshot(src); ok {
		set = newReputationSet(src.ID, entries, s.mode)
		s.logger.Info().Str("source", src.ID).Str("entries", humanize.Comma(int64(set.Len()))).Msg("Loaded reputation snapshot")
		return
	}

	entries, err := s.fetch(ctx, src)
	if err != nil {
		err = fmt.Errorf("%w: %v: %v", ErrSourceUnavailable, src.ID, err)
		return
	}

	set = newReputationSet(src.ID, entries, s.mode)
	s.writeSnapshot(src, entries)
	s.logger.Info().Str("source", src.ID).Str("entries", humanize.Comma(int64(set.Len()))).Msg("Fetched reputation source")
	return
}

// LoadAll loads every source concurrently and activates the results. A source that is unavailable
// is activated as an empty set and a warning is logged.
func (s *Store) LoadAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range s.sources {
		src := src
		g.Go(func() error {
			set, err := s.Load(ctx, src)
			if errors.Is(err, ErrSourceUnavailable) {
				s.logger.Warn().Err(err).Str("source", src.ID).Msg("Reputation source degraded to an empty set")
				set = newReputationSet(src.ID, nil, s.mode)
			} else if err != nil {
				return err
			}

			s.sets[src.ID].Store(set)
			return nil
		})
	}
	return g.Wait()
}

// Refresh re-fetches every source, ignoring snapshots. Sources that fail keep their current set.
func (s *Store) Refresh(ctx context.Context) {
	for _, src := range s.sources {
		entries, err := s.fetch(ctx, src)
		if err != nil {
			s.logger.Warn().Err(err).Str("source", src.ID).Msg("Reputation source refresh failed, keeping current set")
			continue
		}

		set := newReputationSet(src.ID, entries, s.mode)
		s.writeSnapshot(src, entries)
		s.sets[src.ID].Store(set)
		s.logger.Info().Str("source", src.ID).Str("entries", humanize.Comma(int64(set.Len()))).Msg("Refreshed reputation source")
	}
}

// RefreshLoop calls Refresh every interval until ctx is done.
func (s *Store) RefreshLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Contains reports whether address is listed by the given source.
func (s *Store) Contains(sourceID string, address string) bool {
	p, ok := s.sets[sourceID]
	if !ok {
		return false
	}
	return p.Load().Contains(address)
}

// Matches returns the ids of all sources listing address, in configuration order.
func (s *Store) Matches(address string) (sourceIDs []string) {
	for _, src := range s.sources {
		if s.Contains(src.ID, address) {
			sourceIDs = append(sourceIDs, src.ID)
		}
	}
	return
}

func (s *Store) readSnapshot(src Source) (entries []string, ok bool) {
	data, err := s.fs.readFile(src.Snapshot)
	if err != nil {
		return
	}

	if err = json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn().Err(err).Str("source", src.ID).Msg("Ignoring unreadable reputation snapshot")
		return
	}

	ok = true
	return
}

func (s *Store) writeSnapshot(src Source, entries []string) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	data, err := json.Marshal(entries)
	if err != nil {
		s.logger.Error().Err(err).Str("source", src.ID).Msg("Failed to encode reputation snapshot")
		return
	}

	if err = s.fs.writeFile(src.Snapshot, data); err != nil {
		s.logger.Error().Err(err).Str("source", src.ID).Msg("Failed to write reputation snapshot")
	}
}

func (s *Store) fetch(ctx context.Context, src Source) (entries []string, err error) {
	for _, url := range src.URLs {
		var body []byte
		body, err = s.download(ctx, url)
		if err != nil {
			return
		}

		var urlEntries []string
		urlEntries, err = parseFeed(src, body)
		if err != nil {
			err = fmt.Errorf("parsing %v: %w", url, err)
			return
		}
		entries = append(entries, urlEntries...)
	}

	entries = dedupe(entries)
	return
}

func (s *Store) download(ctx context.Context, url string) (body []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("GET %v: unexpected status %v", url, resp.Status)
		return
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return
	}

	s.logger.Debug().Str("url", url).Str("size", humanize.Bytes(uint64(len(body)))).Msg("Downloaded reputation feed")
	return
}
