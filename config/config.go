// Package config holds the operator configuration of the risk gate.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"riskgate/crawler"
	"riskgate/gate"
	"riskgate/ipreputation"
	"riskgate/policy"
	"riskgate/reputationcache"
	"riskgate/stopforumspam"
)

// Cache backends.
const (
	CacheBackendJSON = "json"
	CacheBackendBolt = "bolt"
)

const defaultHardness = 2

// Main is the top level configuration.
type Main struct {
	DataDir           string        `yaml:"data_dir"`
	SecretFile        string        `yaml:"secret_file"`
	Hardness          int           `yaml:"hardness"`
	ChallengeEveryone bool          `yaml:"challenge_everyone"`
	VerificationAge   time.Duration `yaml:"verification_age"`
	WithoutCookies    bool          `yaml:"without_cookies"`
	BlockCrawlers     bool          `yaml:"block_crawlers"`
	FailOpen          bool          `yaml:"fail_open"`
	TemplateDir       string        `yaml:"template_dir"`
	Actions           policy.Table  `yaml:"actions"`

	Sources         []string               `yaml:"sources"`
	MatchMode       ipreputation.MatchMode `yaml:"match_mode"`
	RefreshInterval time.Duration          `yaml:"refresh_interval"`
	FetchTimeout    time.Duration          `yaml:"fetch_timeout"`

	Cache         Cache         `yaml:"cache"`
	StopForumSpam StopForumSpam `yaml:"stopforumspam"`
	Crawler       Crawler       `yaml:"crawler"`
	GRPC          GRPC          `yaml:"grpc"`
	ResultsLog    ResultsLog    `yaml:"results_log"`
}

// Cache configures the reputation verdict cache.
type Cache struct {
	Backend string        `yaml:"backend"`
	Window  time.Duration `yaml:"window"`
}

// StopForumSpam configures the external reputation service.
type StopForumSpam struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Crawler configures crawler classification.
type Crawler struct {
	Engine      string   `yaml:"engine"`
	ExtraAgents []string `yaml:"extra_agents"`
}

// GRPC configures the evaluation service listener.
type GRPC struct {
	Network string `yaml:"network"`
	Address string `yaml:"address"`
}

// ResultsLog configures where customer facing results are written. An empty File logs through zerolog.
type ResultsLog struct {
	File string `yaml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() *Main {
	return &Main{
		DataDir:         "data",
		Hardness:        defaultHardness,
		VerificationAge: gate.DefaultVerificationAge,
		Sources:         sourceIDs(ipreputation.DefaultSources()),
		MatchMode:       ipreputation.MatchExact,
		RefreshInterval: 24 * time.Hour,
		FetchTimeout:    ipreputation.DefaultFetchTimeout,
		Cache: Cache{
			Backend: CacheBackendJSON,
			Window:  reputationcache.DefaultWindow,
		},
		StopForumSpam: StopForumSpam{
			BaseURL: stopforumspam.DefaultBaseURL,
			Timeout: stopforumspam.DefaultTimeout,
		},
		Crawler: Crawler{Engine: crawler.EngineGo},
		GRPC:    GRPC{Network: "tcp", Address: "localhost:37291"},
	}
}

// Load reads a YAML configuration file over the defaults and validates it.
func Load(logger zerolog.Logger, fs FileSystem, path string) (c *Main, err error) {
	b, err := fs.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("read config file %v: %w", path, err)
		return
	}

	c = Default()
	if err = yaml.Unmarshal(b, c); err != nil {
		err = fmt.Errorf("decode config file %v: %w", path, err)
		c = nil
		return
	}

	if err = c.Validate(logger); err != nil {
		c = nil
	}
	return
}

// Validate normalizes out of range values and reports settings that cannot be used.
func (c *Main) Validate(logger zerolog.Logger) error {
	if c.Hardness < 1 || c.Hardness > 3 {
		logger.Warn().Int("hardness", c.Hardness).Msg("Hardness must be 1, 2 or 3, using 2")
		c.Hardness = defaultHardness
	}

	if c.VerificationAge <= 0 {
		c.VerificationAge = gate.DefaultVerificationAge
	}

	for _, r := range c.Actions.InvalidRules() {
		logger.Warn().Str("matcher", r.Matcher).Str("action", string(r.Action)).Msg("Ignoring route rule with an unknown action")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}

	if c.SecretFile == "" {
		c.SecretFile = filepath.Join(c.DataDir, "captchasecret.txt")
	}

	if _, err := ipreputation.SelectSources(c.Sources); err != nil {
		return err
	}

	switch c.MatchMode {
	case "":
		c.MatchMode = ipreputation.MatchExact
	case ipreputation.MatchExact, ipreputation.MatchPrefix:
	default:
		return fmt.Errorf("unknown match_mode %q", c.MatchMode)
	}

	if c.FetchTimeout <= 0 {
		c.FetchTimeout = ipreputation.DefaultFetchTimeout
	}

	switch c.Cache.Backend {
	case "":
		c.Cache.Backend = CacheBackendJSON
	case CacheBackendJSON, CacheBackendBolt:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	if c.Cache.Window <= 0 {
		c.Cache.Window = reputationcache.DefaultWindow
	}

	if c.StopForumSpam.BaseURL == "" {
		c.StopForumSpam.BaseURL = stopforumspam.DefaultBaseURL
	}

	if c.StopForumSpam.Timeout <= 0 {
		c.StopForumSpam.Timeout = stopforumspam.DefaultTimeout
	}

	switch c.Crawler.Engine {
	case "":
		c.Crawler.Engine = crawler.EngineGo
	case crawler.EngineGo, crawler.EngineHyperscan:
	default:
		return fmt.Errorf("unknown crawler engine %q", c.Crawler.Engine)
	}

	return nil
}

// GateOptions returns the engine options. Relative templates are resolved against TemplateDir.
func (c *Main) GateOptions() gate.Options {
	actions := make(policy.Table, len(c.Actions))
	for i, r := range c.Actions {
		if r.Template != "" && c.TemplateDir != "" && !filepath.IsAbs(r.Template) {
			r.Template = filepath.Join(c.TemplateDir, r.Template)
		}
		actions[i] = r
	}

	return gate.Options{
		Actions:           actions,
		Hardness:          c.Hardness,
		ChallengeEveryone: c.ChallengeEveryone,
		BlockCrawlers:     c.BlockCrawlers,
		WithoutCookies:    c.WithoutCookies,
		VerificationAge:   c.VerificationAge,
		FailOpen:          c.FailOpen,
	}
}

// CacheFile returns the path of the reputation cache for the configured backend.
func (c *Main) CacheFile() string {
	if c.Cache.Backend == CacheBackendBolt {
		return filepath.Join(c.DataDir, "stopforumspamcache.db")
	}
	return filepath.Join(c.DataDir, reputationcache.DefaultFileName)
}

func sourceIDs(sources []ipreputation.Source) (ids []string) {
	for _, s := range sources {
		ids = append(ids, s.ID)
	}
	return
}
