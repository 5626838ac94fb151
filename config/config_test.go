package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskgate/crawler"
	"riskgate/ipreputation"
	"riskgate/policy"
	"riskgate/reputationcache"
	"riskgate/stopforumspam"
	"riskgate/testutils"
)

const fullConfig = `
data_dir: /var/lib/riskgate
hardness: 3
challenge_everyone: true
verification_age: 30m
without_cookies: true
block_crawlers: true
fail_open: true
template_dir: /etc/riskgate/templates
actions:
  /login: hard
  /health: let
  /admin:
    action: block
    template: blocked.html
  signup: [signup.html, easy]
sources: [firehol, torexitnodes]
match_mode: prefix
refresh_interval: 6h
fetch_timeout: 10s
cache:
  backend: bolt
  window: 48h
stopforumspam:
  base_url: http://localhost:9999
  timeout: 1s
crawler:
  engine: hyperscan
  extra_agents: [mybot]
grpc:
  network: unix
  address: /run/riskgate.sock
results_log:
  file: /var/log/riskgate/riskgate_json.log
`

func TestLoadFullConfig(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	fs := &mockFileSystem{files: map[string]string{"/etc/riskgate.yaml": fullConfig}}

	// Act
	c, err := Load(testutils.NewTestLogger(t), fs, "/etc/riskgate.yaml")

	// Assert
	require.Nil(t, err)
	assert.Equal(1, fs.readFileCalled)
	assert.Equal("/var/lib/riskgate", c.DataDir)
	assert.Equal("/var/lib/riskgate/captchasecret.txt", c.SecretFile)
	assert.Equal(3, c.Hardness)
	assert.True(c.ChallengeEveryone)
	assert.Equal(30*time.Minute, c.VerificationAge)
	assert.True(c.WithoutCookies)
	assert.True(c.BlockCrawlers)
	assert.True(c.FailOpen)
	assert.Equal(policy.Table{
		{Matcher: "/login", Action: policy.Hard},
		{Matcher: "/health", Action: policy.Let},
		{Matcher: "/admin", Action: policy.Block, Template: "blocked.html"},
		{Matcher: "signup", Action: policy.Easy, Template: "signup.html"},
	}, c.Actions)
	assert.Equal([]string{"firehol", "torexitnodes"}, c.Sources)
	assert.Equal(ipreputation.MatchPrefix, c.MatchMode)
	assert.Equal(6*time.Hour, c.RefreshInterval)
	assert.Equal(10*time.Second, c.FetchTimeout)
	assert.Equal(Cache{Backend: CacheBackendBolt, Window: 48 * time.Hour}, c.Cache)
	assert.Equal(StopForumSpam{BaseURL: "http://localhost:9999", Timeout: time.Second}, c.StopForumSpam)
	assert.Equal(Crawler{Engine: crawler.EngineHyperscan, ExtraAgents: []string{"mybot"}}, c.Crawler)
	assert.Equal(GRPC{Network: "unix", Address: "/run/riskgate.sock"}, c.GRPC)
	assert.Equal("/var/log/riskgate/riskgate_json.log", c.ResultsLog.File)
	assert.Equal("/var/lib/riskgate/stopforumspamcache.db", c.CacheFile())
}

func TestLoadEmptyConfigGivesDefaults(t *testing.T) {
	assert := assert.New(t)

	fs := &mockFileSystem{files: map[string]string{"c.yaml": ""}}

	c, err := Load(testutils.NewTestLogger(t), fs, "c.yaml")

	require.Nil(t, err)
	assert.Equal(2, c.Hardness)
	assert.False(c.FailOpen)
	assert.False(c.ChallengeEveryone)
	assert.Equal(time.Hour, c.VerificationAge)
	assert.Equal(ipreputation.MatchExact, c.MatchMode)
	assert.Len(c.Sources, len(ipreputation.DefaultSources()))
	assert.Equal(CacheBackendJSON, c.Cache.Backend)
	assert.Equal(reputationcache.DefaultWindow, c.Cache.Window)
	assert.Equal(stopforumspam.DefaultBaseURL, c.StopForumSpam.BaseURL)
	assert.Equal(crawler.EngineGo, c.Crawler.Engine)
	assert.Equal("data/"+reputationcache.DefaultFileName, c.CacheFile())
}

func TestLoadNormalizesHardness(t *testing.T) {
	assert := assert.New(t)

	for _, h := range []string{"0", "4", "-1"} {
		fs := &mockFileSystem{files: map[string]string{"c.yaml": "hardness: " + h}}

		c, err := Load(testutils.NewTestLogger(t), fs, "c.yaml")

		require.Nil(t, err)
		assert.Equal(2, c.Hardness, h)
	}
}

func TestLoadKeepsInvalidActionRules(t *testing.T) {
	assert := assert.New(t)

	fs := &mockFileSystem{files: map[string]string{"c.yaml": "actions:\n  /x: explode\n"}}

	c, err := Load(testutils.NewTestLogger(t), fs, "c.yaml")

	require.Nil(t, err)
	assert.Len(c.Actions.InvalidRules(), 1)
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"unknown source":  "sources: [nosuchlist]",
		"unknown mode":    "match_mode: fuzzy",
		"unknown backend": "cache:\n  backend: redis",
		"unknown engine":  "crawler:\n  engine: regex",
		"empty data dir":  "data_dir: ''",
		"not yaml":        "hardness: [",
		"bad duration":    "verification_age: forever",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			fs := &mockFileSystem{files: map[string]string{"c.yaml": content}}

			c, err := Load(testutils.NewTestLogger(t), fs, "c.yaml")

			assert.Error(t, err)
			assert.Nil(t, c)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	fs := &mockFileSystem{files: map[string]string{}}

	_, err := Load(testutils.NewTestLogger(t), fs, "missing.yaml")

	assert.Error(t, err)
}

func TestGateOptions(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	c := Default()
	c.TemplateDir = "/tpl"
	c.Hardness = 1
	c.FailOpen = true
	c.Actions = policy.Table{
		{Matcher: "/a", Action: policy.Block, Template: "a.html"},
		{Matcher: "/b", Action: policy.Hard, Template: "/abs/b.html"},
		{Matcher: "/c", Action: policy.Let},
	}

	// Act
	o := c.GateOptions()

	// Assert
	assert.Equal(1, o.Hardness)
	assert.True(o.FailOpen)
	assert.Equal(time.Hour, o.VerificationAge)
	assert.Equal("/tpl/a.html", o.Actions[0].Template)
	assert.Equal("/abs/b.html", o.Actions[1].Template)
	assert.Equal("", o.Actions[2].Template)
	assert.Equal("a.html", c.Actions[0].Template)
}

type mockFileSystem struct {
	files          map[string]string
	readFileCalled int
}

func (fs *mockFileSystem) ReadFile(name string) ([]byte, error) {
	fs.readFileCalled++
	s, ok := fs.files[name]
	if !ok {
		return nil, errors.New("file not found")
	}
	return []byte(s), nil
}
