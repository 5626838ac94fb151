package logging

type customerRiskLogEntry struct {
	OperationName string                       `json:"operationName"`
	Category      string                       `json:"category"`
	Time          string                       `json:"time"`
	Properties    customerRiskLogEntryProperty `json:"properties"`
}

type customerRiskLogEntryProperty struct {
	ClientIP      string                      `json:"clientIp"`
	Method        string                      `json:"method"`
	RequestPath   string                      `json:"requestPath"`
	Message       string                      `json:"message"`
	Action        string                      `json:"action"`
	Decision      string                      `json:"decision"`
	Hardness      int                         `json:"hardness,omitempty"`
	Template      string                      `json:"template,omitempty"`
	Reasons       []string                    `json:"reasons"`
	Details       customerRiskLogDetailsEntry `json:"details"`
	TransactionID string                      `json:"transactionId"`
}

type customerRiskLogDetailsEntry struct {
	Message string `json:"message"`
}

const (
	operationName = "RiskGate"
	category      = "RiskGateLog"
)
