package grpc

import (
	"github.com/google/uuid"

	"riskgate/gate"
)

type httpRequestWrapper struct {
	msg  *HTTPRequest
	txid string
}

func newHTTPRequestWrapper(msg *HTTPRequest) *httpRequestWrapper {
	txid := msg.TransactionID
	if txid == "" {
		txid = uuid.NewString()
	}
	return &httpRequestWrapper{msg: msg, txid: txid}
}

func (r *httpRequestWrapper) Method() string     { return r.msg.Method }
func (r *httpRequestWrapper) Path() string       { return r.msg.Path }
func (r *httpRequestWrapper) Endpoint() string   { return r.msg.Endpoint }
func (r *httpRequestWrapper) RemoteAddr() string { return r.msg.RemoteAddr }
func (r *httpRequestWrapper) Headers() []gate.HeaderPair {
	hh := make([]gate.HeaderPair, 0, len(r.msg.Headers))
	for i := range r.msg.Headers {
		hh = append(hh, &headerPairWrapper{msg: &r.msg.Headers[i]})
	}
	return hh
}
func (r *httpRequestWrapper) Cookie(name string) string   { return r.msg.Cookies[name] }
func (r *httpRequestWrapper) QueryArg(name string) string { return r.msg.Query[name] }
func (r *httpRequestWrapper) TransactionID() string       { return r.txid }

type headerPairWrapper struct{ msg *HeaderPair }

func (h *headerPairWrapper) Key() string   { return h.msg.Key }
func (h *headerPairWrapper) Value() string { return h.msg.Value }

func toDisposition(d gate.Disposition, txid string) *Disposition {
	reasons := d.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return &Disposition{
		Decision:      d.Decision.String(),
		Action:        string(d.Action),
		Hardness:      d.Hardness,
		Template:      d.Template,
		Reasons:       reasons,
		TransactionID: txid,
	}
}
