package gate

// ResultsLogger is where the engine writes the high level customer facing results.
type ResultsLogger interface {
	RequestChallenged(request ResultsLoggerHTTPRequest, clientIP string, d Disposition)
	RequestBlocked(request ResultsLoggerHTTPRequest, clientIP string, d Disposition)
	ReputationLookupFailed(request ResultsLoggerHTTPRequest, clientIP string, err error)
}

// ResultsLoggerHTTPRequest represents an HTTP request to be logged by ResultsLogger.
type ResultsLoggerHTTPRequest interface {
	Method() string
	Path() string
	TransactionID() string
}
