package grpc

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"riskgate/config"
	"riskgate/crawler"
	"riskgate/gate"
	"riskgate/hyperscan"
	"riskgate/ipreputation"
	"riskgate/logging"
	"riskgate/policy"
	"riskgate/reputationcache"
	"riskgate/stopforumspam"
	"riskgate/tokencrypto"
)

const boltOpenTimeout = 5 * time.Second

// StartServer is the dependency injection composition root for running the risk gate through gRPC.
// Configs received on reloadConfigCh replace the engine options without a restart, and a value on
// reopenLogFileCh reopens the results log file after rotation.
func StartServer(logger zerolog.Logger, c *config.Main, reloadConfigCh <-chan *config.Main, reopenLogFileCh <-chan bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	secret, err := tokencrypto.LoadOrCreateSecret(c.SecretFile)
	if err != nil {
		logger.Fatal().Err(err).Str("file", c.SecretFile).Msg("Error while loading the captcha secret")
	}

	// Reputation lists
	ipfs, err := ipreputation.NewFileSystem(c.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", c.DataDir).Msg("Data directory is not usable")
	}
	sources, err := ipreputation.SelectSources(c.Sources)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error while selecting reputation sources")
	}
	store := ipreputation.NewStore(logger, ipfs, sources, c.MatchMode, c.FetchTimeout)
	if err = store.LoadAll(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Error while loading reputation lists")
	}
	if c.RefreshInterval > 0 {
		go store.RefreshLoop(ctx, c.RefreshInterval)
	}

	// External reputation with its cache
	var backend reputationcache.Backend
	if c.Cache.Backend == config.CacheBackendBolt {
		backend, err = reputationcache.NewBolt(c.CacheFile(), boltOpenTimeout)
	} else {
		backend = reputationcache.NewJSONFile(c.CacheFile())
	}
	if err != nil {
		logger.Fatal().Err(err).Str("file", c.CacheFile()).Msg("Error while opening the reputation cache")
	}
	cache, err := reputationcache.NewCache(logger, backend, tokencrypto.NewKeyedHasher([]byte(secret)), c.Cache.Window)
	if err != nil {
		logger.Fatal().Err(err).Str("file", c.CacheFile()).Msg("Error while loading the reputation cache")
	}
	defer cache.Close()
	sfs := stopforumspam.NewClient(c.StopForumSpam.BaseURL, c.StopForumSpam.Timeout)
	verifier := stopforumspam.NewVerifier(logger, cache, sfs)

	// Crawlers
	hscache := hyperscan.NewDbCache(logger, hyperscan.NewCacheFileSystem(filepath.Join(c.DataDir, "hyperscan")))
	crawlers, err := crawler.NewDetector(logger, c.Crawler.Engine, c.Crawler.ExtraAgents, hscache)
	if err != nil {
		logger.Fatal().Err(err).Str("engine", c.Crawler.Engine).Msg("Error while creating crawler detector")
	}

	resolver := policy.NewResolver(logger, &policy.FileSystemImpl{})
	tokens, err := gate.NewTokenIssuer(secret)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error while creating token issuer")
	}

	var rl gate.ResultsLogger
	if c.ResultsLog.File != "" {
		frl, err := logging.NewFileResultsLogger(&logging.LogFileSystemImpl{}, logger, c.ResultsLog.File)
		if err != nil {
			logger.Fatal().Err(err).Msg("Error while creating file logger")
		}
		defer frl.Close()
		rl = frl

		go func() {
			for range reopenLogFileCh {
				frl.Reopen()
			}
		}()
	} else {
		rl = logging.NewZerologResultsLogger(logger)
	}

	engine := gate.NewEngine(logger, c.GateOptions(), resolver, store, crawlers, verifier, tokens, rl)

	go func() {
		for nc := range reloadConfigCh {
			engine.PutOptions(nc.GateOptions())
			logger.Info().Msg("Applied reloaded config")
		}
	}()

	grpcServer := NewServer(logger, engine, tokens)
	logger.Info().Msg("Starting gRPC risk gate server")
	if err := grpcServer.Serve(c.GRPC.Network, c.GRPC.Address); err != nil {
		logger.Fatal().Err(err).Msg("Error while running gRPC risk gate server")
	}
}
