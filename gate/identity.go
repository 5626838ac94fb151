package gate

import (
	"errors"

	"riskgate/ipaddresses"
)

// ErrIdentityExtraction is returned when a request carries no usable client address or user agent.
var ErrIdentityExtraction = errors.New("failed to identify client")

// forwardedHeaders are checked in this order before falling back to the peer address.
var forwardedHeaders = []string{
	"X-Forwarded-For",
	"X-Real-Ip",
	"CF-Connecting-IP",
	"True-Client-Ip",
}

// ClientIP returns the client address of req, preferring proxy headers. Only the first entry of
// a list valued header is used, and a header whose value is not an address is skipped. IPv6
// addresses are compressed.
func ClientIP(req HTTPRequest) (ip string, err error) {
	for _, h := range forwardedHeaders {
		value, ok := HeaderValue(req, h)
		if !ok {
			continue
		}
		ip = ipaddresses.FirstListItem(value)
		if ipaddresses.IsAddress(ip) {
			ip = ipaddresses.Normalize(ip)
			return
		}
	}

	ip = ipaddresses.StripPort(req.RemoteAddr())
	if ip == "" {
		err = ErrIdentityExtraction
		return
	}

	ip = ipaddresses.Normalize(ip)
	return
}

// UserAgent returns the User-Agent header of req. A missing or empty header is an error.
func UserAgent(req HTTPRequest) (ua string, err error) {
	ua, _ = HeaderValue(req, "User-Agent")
	if ua == "" {
		err = ErrIdentityExtraction
	}
	return
}
