package logging

import (
	"time"

	"github.com/rs/zerolog"

	"riskgate/gate"
)

// NewZerologResultsLogger creates a results logger that creates log messages like the ones we want to send to the customer, but just outputs them to Zerolog.
func NewZerologResultsLogger(logger zerolog.Logger) gate.ResultsLogger {
	return &zerologResultsLogger{logger: logger, now: time.Now}
}

type zerologResultsLogger struct {
	logger zerolog.Logger
	now    func() time.Time
}

func (l *zerologResultsLogger) RequestChallenged(request gate.ResultsLoggerHTTPRequest, clientIP string, d gate.Disposition) {
	l.write(challengedEntry(request, clientIP, d, l.now()))
}

func (l *zerologResultsLogger) RequestBlocked(request gate.ResultsLoggerHTTPRequest, clientIP string, d gate.Disposition) {
	l.write(blockedEntry(request, clientIP, d, l.now()))
}

func (l *zerologResultsLogger) ReputationLookupFailed(request gate.ResultsLoggerHTTPRequest, clientIP string, err error) {
	l.write(lookupFailedEntry(request, clientIP, err, l.now()))
}

func (l *zerologResultsLogger) write(c *customerRiskLogEntry) {
	bb, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		l.logger.Error().Err(err).Msg("Error while marshaling JSON results log")
		return
	}

	l.logger.Info().Msgf("Customer facing log:\n%s\n", bb)
}
