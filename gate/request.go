package gate

import (
	"strings"
)

// HeaderPair represents a header line in an HTTP request.
type HeaderPair interface {
	Key() string
	Value() string
}

// HTTPRequest is the read-only view of a request the engine needs from its host.
type HTTPRequest interface {
	Method() string
	Path() string

	// Endpoint is the name of the handler the host routed the request to. It may be empty.
	Endpoint() string

	// RemoteAddr is the transport level peer address, with or without a port.
	RemoteAddr() string
	Headers() []HeaderPair
	Cookie(name string) string
	QueryArg(name string) string
	TransactionID() string
}

// HeaderValue returns the value of the first header called key, compared case-insensitively.
func HeaderValue(req HTTPRequest, key string) (value string, ok bool) {
	for _, h := range req.Headers() {
		if strings.EqualFold(h.Key(), key) {
			return h.Value(), true
		}
	}
	return
}
