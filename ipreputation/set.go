package ipreputation

import (
	"net/netip"
	"strings"

	"riskgate/ipaddresses"
)

// MatchMode selects how list entries carrying a CIDR mask are matched.
type MatchMode string

const (
	// MatchExact reduces every entry to its base address and matches addresses by equality.
	MatchExact MatchMode = "exact"

	// MatchPrefix matches addresses against the full range of each entry.
	MatchPrefix MatchMode = "prefix"
)

// ReputationSet is the immutable content of one source.
type ReputationSet struct {
	SourceID string
	entries  []string
	addrs    map[string]struct{}
	trie     *binaryTrie
}

func newReputationSet(sourceID string, entries []string, mode MatchMode) *ReputationSet {
	s := &ReputationSet{SourceID: sourceID, entries: entries}

	if mode == MatchPrefix {
		prefixes := make([]netip.Prefix, 0, len(entries))
		for _, e := range entries {
			p, err := ipaddresses.ParsePrefix(e)
			if err != nil {
				continue
			}
			prefixes = append(prefixes, p)
		}
		s.trie = newBinaryTrie(prefixes)
		return s
	}

	s.addrs = make(map[string]struct{}, len(entries))
	for _, e := range entries {
		s.addrs[ipaddresses.BaseAddress(e)] = struct{}{}
	}
	return s
}

// Contains reports whether address is listed in the set.
func (s *ReputationSet) Contains(address string) bool {
	if s == nil {
		return false
	}

	if s.trie != nil {
		ip, err := netip.ParseAddr(strings.TrimSpace(address))
		if err != nil {
			return false
		}
		return s.trie.match(ip)
	}

	_, ok := s.addrs[ipaddresses.Normalize(address)]
	return ok
}

// Len returns the number of distinct entries in the set.
func (s *ReputationSet) Len() int {
	if s == nil {
		return 0
	}
	if s.addrs != nil {
		return len(s.addrs)
	}
	return len(s.entries)
}
