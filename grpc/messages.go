package grpc

// HeaderPair is one request header line.
type HeaderPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// HTTPRequest describes the request a host wants evaluated.
type HTTPRequest struct {
	Method        string            `json:"method"`
	Path          string            `json:"path"`
	Endpoint      string            `json:"endpoint,omitempty"`
	RemoteAddr    string            `json:"remoteAddr"`
	Headers       []HeaderPair      `json:"headers"`
	Cookies       map[string]string `json:"cookies,omitempty"`
	Query         map[string]string `json:"query,omitempty"`
	TransactionID string            `json:"transactionId,omitempty"`
}

// Disposition is the evaluation result.
type Disposition struct {
	Decision      string   `json:"decision"`
	Action        string   `json:"action"`
	Hardness      int      `json:"hardness,omitempty"`
	Template      string   `json:"template,omitempty"`
	Reasons       []string `json:"reasons"`
	TransactionID string   `json:"transactionId"`
}

// VerificationToken is issued to a client that passed a challenge.
type VerificationToken struct {
	Name   string `json:"name"`
	Token  string `json:"token"`
	MaxAge int64  `json:"maxAgeSeconds"`
}
