// Package crawler classifies user agents as known crawlers.
package crawler

import (
	"bufio"
	_ "embed"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"riskgate/hyperscan"
)

//go:embed crawleragents.txt
var builtinAgents string

const (
	// EngineGo scans for every substring with the standard library.
	EngineGo = "go"

	// EngineHyperscan compiles all substrings into one Hyperscan database.
	EngineHyperscan = "hyperscan"
)

// Detector reports whether a user agent belongs to a crawler. Implementations are safe for concurrent use.
type Detector interface {
	IsCrawler(userAgent string) bool
}

// BuiltinAgents returns the embedded crawler user agent substrings, lower-cased.
func BuiltinAgents() (agents []string) {
	scanner := bufio.NewScanner(strings.NewReader(builtinAgents))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		agents = append(agents, strings.ToLower(line))
	}
	return
}

// NewDetector creates a detector for the built-in agents plus extra, using the named engine.
// cache is only used by the Hyperscan engine and may be nil.
func NewDetector(logger zerolog.Logger, engine string, extra []string, cache hyperscan.DbCache) (d Detector, err error) {
	agents := mergeAgents(BuiltinAgents(), extra)

	switch engine {
	case EngineGo, "":
		d = newGoDetector(agents)
	case EngineHyperscan:
		var m *hyperscan.LiteralMatcher
		m, err = hyperscan.NewLiteralMatcher(agents, cache)
		if err != nil {
			err = fmt.Errorf("failed to compile crawler agents: %w", err)
			return
		}
		d = &hyperscanDetector{logger: logger, matcher: m, fallback: newGoDetector(agents)}
	default:
		err = fmt.Errorf("unknown crawler engine %q", engine)
		return
	}

	logger.Info().Str("engine", engine).Int("agents", len(agents)).Msg("Crawler detector ready")
	return
}

func mergeAgents(builtin []string, extra []string) []string {
	seen := make(map[string]struct{}, len(builtin)+len(extra))
	agents := make([]string, 0, len(builtin)+len(extra))
	for _, list := range [][]string{builtin, extra} {
		for _, a := range list {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" {
				continue
			}
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			agents = append(agents, a)
		}
	}
	return agents
}

type goDetector struct {
	agents []string
}

func newGoDetector(agents []string) *goDetector {
	return &goDetector{agents: agents}
}

func (d *goDetector) IsCrawler(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, a := range d.agents {
		if strings.Contains(ua, a) {
			return true
		}
	}
	return false
}

type literalMatcher interface {
	Match(data string) (bool, error)
}

// hyperscanDetector answers from the Go scan when Hyperscan fails, so a scan error never lets a crawler through.
type hyperscanDetector struct {
	logger   zerolog.Logger
	matcher  literalMatcher
	fallback *goDetector
}

func (d *hyperscanDetector) IsCrawler(userAgent string) bool {
	found, err := d.matcher.Match(userAgent)
	if err != nil {
		d.logger.Warn().Err(err).Msg("Hyperscan crawler scan failed, using the Go scan")
		return d.fallback.IsCrawler(userAgent)
	}
	return found
}
