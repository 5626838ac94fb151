// Package hyperscan matches input against many literals at once using the Hyperscan library.
package hyperscan

import (
	"errors"
	"regexp"

	hs "github.com/flier/gohs/hyperscan"
)

var errStopScan = errors.New("stop scan")

// LiteralMatcher reports whether an input contains any of a set of literals, ignoring case.
// It is safe for concurrent use.
type LiteralMatcher struct {
	// Hyperscan's compiled database of literals
	db hs.BlockDatabase

	// Pre-allocated memory spaces that Hyperscan needs during evaluation. A scratch space may only
	// be used by one scan at a time, so each scan takes its own from this free list.
	scratches chan *hs.Scratch
	prototype *hs.Scratch
}

// maxIdleScratches bounds the scratch spaces kept between scans.
const maxIdleScratches = 64

// NewLiteralMatcher compiles literals into a database, reusing a cached one from cache if there is one.
// cache may be nil.
func NewLiteralMatcher(literals []string, cache DbCache) (m *LiteralMatcher, err error) {
	if len(literals) == 0 {
		err = errors.New("no literals to match")
		return
	}

	patterns := []*hs.Pattern{}
	for i, lit := range literals {
		p := hs.NewPattern(regexp.QuoteMeta(lit), 0)
		p.Id = i

		// SingleMatch makes Hyperscan only return one match per pattern.
		p.Flags = hs.Caseless | hs.SingleMatch

		patterns = append(patterns, p)
	}

	var cacheID string
	var db hs.BlockDatabase
	if cache != nil {
		cacheID = cache.cacheID(patterns)
		db = cache.loadFromCache(cacheID)
	}

	if db == nil {
		db, err = hs.NewBlockDatabase(patterns...)
		if err != nil {
			return
		}
		if cache != nil {
			cache.saveToCache(cacheID, db)
		}
	}

	prototype, err := hs.NewScratch(db)
	if err != nil {
		db.Close()
		return
	}

	m = &LiteralMatcher{db: db, prototype: prototype, scratches: make(chan *hs.Scratch, maxIdleScratches)}
	return
}

func (m *LiteralMatcher) getScratch() (*hs.Scratch, error) {
	select {
	case s := <-m.scratches:
		return s, nil
	default:
		return m.prototype.Clone()
	}
}

func (m *LiteralMatcher) putScratch(s *hs.Scratch) {
	select {
	case m.scratches <- s:
	default:
		s.Free()
	}
}

// Match reports whether input contains any literal.
func (m *LiteralMatcher) Match(input string) (found bool, err error) {
	_, found, err = m.FirstMatch(input)
	return
}

// FirstMatch returns the index of a literal contained in input.
func (m *LiteralMatcher) FirstMatch(input string) (id int, found bool, err error) {
	if input == "" {
		return
	}

	scratch, err := m.getScratch()
	if err != nil {
		return
	}
	defer m.putScratch(scratch)

	handler := func(matchID uint, from, to uint64, flags uint, context interface{}) error {
		id = int(matchID)
		found = true
		return errStopScan
	}

	err = m.db.Scan([]byte(input), scratch, handler, nil)
	if found {
		err = nil
	}
	return
}

// Close frees the compiled database and the idle scratch spaces. The matcher must not be used afterwards.
func (m *LiteralMatcher) Close() error {
	for {
		select {
		case s := <-m.scratches:
			s.Free()
		default:
			m.prototype.Free()
			return m.db.Close()
		}
	}
}
