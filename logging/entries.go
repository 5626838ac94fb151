package logging

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"riskgate/gate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func challengedEntry(request gate.ResultsLoggerHTTPRequest, clientIP string, d gate.Disposition, now time.Time) *customerRiskLogEntry {
	return newEntry(request, clientIP, "Request challenged", d, "", now)
}

func blockedEntry(request gate.ResultsLoggerHTTPRequest, clientIP string, d gate.Disposition, now time.Time) *customerRiskLogEntry {
	return newEntry(request, clientIP, "Request blocked", d, "", now)
}

func lookupFailedEntry(request gate.ResultsLoggerHTTPRequest, clientIP string, err error, now time.Time) *customerRiskLogEntry {
	return newEntry(request, clientIP, "Reputation lookup failed", gate.Disposition{}, err.Error(), now)
}

func newEntry(request gate.ResultsLoggerHTTPRequest, clientIP string, msg string, d gate.Disposition, details string, now time.Time) *customerRiskLogEntry {
	p := customerRiskLogEntryProperty{
		ClientIP:      clientIP,
		Method:        request.Method(),
		RequestPath:   request.Path(),
		Message:       msg,
		Action:        string(d.Action),
		Hardness:      d.Hardness,
		Template:      d.Template,
		Reasons:       d.Reasons,
		Details:       customerRiskLogDetailsEntry{Message: details},
		TransactionID: request.TransactionID(),
	}
	if d.Decision != 0 {
		p.Decision = d.Decision.String()
	}
	if p.Reasons == nil {
		p.Reasons = []string{}
	}

	return &customerRiskLogEntry{
		OperationName: operationName,
		Category:      category,
		Time:          now.UTC().Format(time.RFC3339),
		Properties:    p,
	}
}
