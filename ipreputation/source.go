package ipreputation

import (
	"fmt"
)

// Format is the wire format of a reputation feed.
type Format string

const (
	// FormatPlain is a text list with one address or CIDR per line and '#' comments.
	FormatPlain Format = "plain"

	// FormatTarGz is a gzip compressed tar archive whose *.zone members are plain lists.
	FormatTarGz Format = "targz"

	// FormatZip is a zip archive containing a single plain list member.
	FormatZip Format = "zip"
)

// Source describes an external reputation feed.
type Source struct {
	ID       string
	URLs     []string
	Format   Format
	Member   string
	Snapshot string
}

// DefaultSources returns the built-in reputation feeds.
func DefaultSources() []Source {
	return []Source{
		{
			ID: "firehol",
			URLs: []string{
				"https://raw.githubusercontent.com/ktsaou/blocklist-ipsets/master/firehol_level1.netset",
				"https://raw.githubusercontent.com/ktsaou/blocklist-ipsets/master/firehol_level2.netset",
				"https://raw.githubusercontent.com/ktsaou/blocklist-ipsets/master/firehol_level3.netset",
				"https://raw.githubusercontent.com/ktsaou/blocklist-ipsets/master/firehol_level4.netset",
			},
			Format:   FormatPlain,
			Snapshot: "fireholipset.json",
		},
		{
			ID: "ipdeny",
			URLs: []string{
				"https://www.ipdeny.com/ipblocks/data/countries/all-zones.tar.gz",
				"https://www.ipdeny.com/ipv6/ipaddresses/blocks/ipv6-all-zones.tar.gz",
			},
			Format:   FormatTarGz,
			Member:   ".zone",
			Snapshot: "ipdenyipset.json",
		},
		{
			ID:       "emergingthreats",
			URLs:     []string{"https://rules.emergingthreats.net/fwrules/emerging-Block-IPs.txt"},
			Format:   FormatPlain,
			Snapshot: "emergingthreatsipset.json",
		},
		{
			ID:       "myipms",
			URLs:     []string{"https://myip.ms/files/blacklist/general/full_blacklist_database.zip"},
			Format:   FormatZip,
			Member:   "full_blacklist_database.txt",
			Snapshot: "myipmsipset.json",
		},
		{
			ID:       "torexitnodes",
			URLs:     []string{"https://check.torproject.org/torbulkexitlist"},
			Format:   FormatPlain,
			Snapshot: "torexitnodes.json",
		},
	}
}

// SelectSources returns the default sources with the given ids, in the order given.
// An empty list selects every default source.
func SelectSources(ids []string) (sources []Source, err error) {
	all := DefaultSources()
	if len(ids) == 0 {
		sources = all
		return
	}

	byID := make(map[string]Source, len(all))
	for _, s := range all {
		byID[s.ID] = s
	}

	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			err = fmt.Errorf("unknown reputation source %q", id)
			return
		}
		sources = append(sources, s)
	}

	return
}
