package httpgate

import (
	"net/http"

	"github.com/google/uuid"

	"riskgate/gate"
)

// RequestIDHeader carries a transaction id assigned by an upstream proxy.
const RequestIDHeader = "X-Request-Id"

type httpRequestWrapper struct {
	r        *http.Request
	endpoint string
	txid     string
}

func newHTTPRequestWrapper(r *http.Request, endpoint string) *httpRequestWrapper {
	txid := r.Header.Get(RequestIDHeader)
	if txid == "" {
		txid = uuid.NewString()
	}
	return &httpRequestWrapper{r: r, endpoint: endpoint, txid: txid}
}

func (w *httpRequestWrapper) Method() string     { return w.r.Method }
func (w *httpRequestWrapper) Path() string       { return w.r.URL.Path }
func (w *httpRequestWrapper) Endpoint() string   { return w.endpoint }
func (w *httpRequestWrapper) RemoteAddr() string { return w.r.RemoteAddr }

// Headers includes Host, which net/http moves out of the header map.
func (w *httpRequestWrapper) Headers() []gate.HeaderPair {
	hh := make([]gate.HeaderPair, 0, len(w.r.Header)+1)
	if w.r.Host != "" {
		hh = append(hh, headerPair{key: "Host", value: w.r.Host})
	}
	for k, vv := range w.r.Header {
		for _, v := range vv {
			hh = append(hh, headerPair{key: k, value: v})
		}
	}
	return hh
}

func (w *httpRequestWrapper) Cookie(name string) string {
	c, err := w.r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (w *httpRequestWrapper) QueryArg(name string) string { return w.r.URL.Query().Get(name) }
func (w *httpRequestWrapper) TransactionID() string       { return w.txid }

type headerPair struct {
	key   string
	value string
}

func (h headerPair) Key() string   { return h.key }
func (h headerPair) Value() string { return h.value }
