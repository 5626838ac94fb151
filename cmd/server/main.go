package main

import (
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"riskgate/config"
	"riskgate/grpc"
)

// Dependency injection composition root
func main() {
	logLevel := flag.String("loglevel", "error", "sets log level. Can be one of: debug, info, warn, error, fatal, panic.")
	profiling := flag.Bool("profiling", false, "whether to enable the :6060/debug/pprof/ endpoint")
	configPath := flag.String("config", "", "path to the YAML config file. The defaults are used if not set. Send SIGHUP to reload it and SIGUSR1 to reopen the results log.")
	flag.Parse()

	if *profiling {
		go func() {
			http.ListenAndServe(":6060", nil)
		}()
	}

	loglevel, _ := zerolog.ParseLevel(*logLevel)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(loglevel).With().Timestamp().Caller().Logger()

	c, err := loadConfig(logger, &config.FileSystemImpl{}, *configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("config", *configPath).Msg("Error while loading config")
	}

	reloadConfigCh := make(chan *config.Main)
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			nc, err := loadConfig(logger, &config.FileSystemImpl{}, *configPath)
			if err != nil {
				logger.Error().Err(err).Str("config", *configPath).Msg("Keeping the current config, the new one could not be loaded")
				continue
			}
			reloadConfigCh <- nc
		}
	}()

	reopenLogFileCh := make(chan bool)
	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	go func() {
		for range usr1 {
			select {
			case reopenLogFileCh <- true:
			default:
				logger.Warn().Msg("Ignoring SIGUSR1, no results log file is configured")
			}
		}
	}()

	grpc.StartServer(logger, c, reloadConfigCh, reopenLogFileCh)
}

func loadConfig(logger zerolog.Logger, fs config.FileSystem, path string) (c *config.Main, err error) {
	if path == "" {
		c = config.Default()
		err = c.Validate(logger)
		return
	}

	return config.Load(logger, fs, path)
}
