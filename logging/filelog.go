package logging

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"riskgate/gate"
)

// FileName is the default results log file name
const FileName = "riskgate_json.log"

// FileResultsLogger writes one JSON line per result. A single goroutine owns the file.
type FileResultsLogger struct {
	fileSystem   LogFileSystem
	path         string
	file         LogFile
	logger       zerolog.Logger
	writelogline chan []byte
	writeDone    chan bool
	reopen       chan chan error
	closeOnce    sync.Once
	now          func() time.Time
}

// NewFileResultsLogger creates a results logger that write log messages to the file at path.
func NewFileResultsLogger(fileSystem LogFileSystem, logger zerolog.Logger, path string) (*FileResultsLogger, error) {
	r := &FileResultsLogger{fileSystem: fileSystem, path: path, logger: logger, now: time.Now}

	dir := filepath.Dir(path)
	err := fileSystem.MkDir(dir)
	if err != nil {
		logger.Error().Err(err).Str("path", dir).Msg("Failed to create the directory while initializing")
		return nil, err
	}

	r.file, err = fileSystem.Open(path)
	if err != nil {
		logger.Error().Err(err).Str("file", path).Msg("Failed to open the file at initiation")
		return nil, err
	}

	r.writelogline = make(chan []byte)
	r.writeDone = make(chan bool)
	r.reopen = make(chan chan error)
	go r.writer()

	return r, nil
}

// RequestChallenged logs a challenged request.
func (l *FileResultsLogger) RequestChallenged(request gate.ResultsLoggerHTTPRequest, clientIP string, d gate.Disposition) {
	l.write(challengedEntry(request, clientIP, d, l.now()))
}

// RequestBlocked logs a blocked request.
func (l *FileResultsLogger) RequestBlocked(request gate.ResultsLoggerHTTPRequest, clientIP string, d gate.Disposition) {
	l.write(blockedEntry(request, clientIP, d, l.now()))
}

// ReputationLookupFailed logs a failed external reputation lookup.
func (l *FileResultsLogger) ReputationLookupFailed(request gate.ResultsLoggerHTTPRequest, clientIP string, err error) {
	l.write(lookupFailedEntry(request, clientIP, err, l.now()))
}

// Reopen closes the log file and opens path again, typically after the file was rotated away.
// If the file cannot be opened the old handle stays in use.
func (l *FileResultsLogger) Reopen() error {
	errCh := make(chan error)
	l.reopen <- errCh
	return <-errCh
}

// Close stops the writer and closes the file. Nothing may be logged or reopened after Close.
func (l *FileResultsLogger) Close() (err error) {
	l.closeOnce.Do(func() {
		close(l.writelogline)
		for range l.writeDone {
		}
		err = l.file.Close()
	})
	return
}

// writer owns the file. Lines and reopen requests are handled one at a time.
func (l *FileResultsLogger) writer() {
	for {
		select {
		case v, ok := <-l.writelogline:
			if !ok {
				close(l.writeDone)
				return
			}
			if err := l.file.Append(append(v, '\n')); err != nil {
				l.logger.Error().Err(err).Msg("Failed to append to results log")
			}
			l.writeDone <- true

		case errCh := <-l.reopen:
			errCh <- l.reopenFile()
		}
	}
}

func (l *FileResultsLogger) reopenFile() error {
	f, err := l.fileSystem.Open(l.path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", l.path).Msg("Failed to reopen results log, keeping the old file")
		return err
	}

	if err = l.file.Close(); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to close the old results log file")
	}
	l.file = f
	l.logger.Info().Str("file", l.path).Msg("Reopened results log")
	return nil
}

func (l *FileResultsLogger) write(c *customerRiskLogEntry) {
	bb, err := json.Marshal(c)
	if err != nil {
		l.logger.Error().Err(err).Msg("Error while marshaling JSON results log")
		return
	}

	l.writelogline <- bb
	<-l.writeDone
}
