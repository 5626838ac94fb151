// Package httpgate puts the risk gate in front of a net/http handler.
package httpgate

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"riskgate/gate"
)

// Evaluator decides what to do with a request.
type Evaluator interface {
	Evaluate(ctx context.Context, req gate.HTTPRequest) gate.Disposition
	Options() gate.Options
}

// TokenIssuer issues verification tokens.
type TokenIssuer interface {
	Issue(clientIP string, userAgent string, now time.Time) (string, error)
}

// EndpointFunc names the handler a request is routed to. It may return an empty string.
type EndpointFunc func(r *http.Request) string

// Middleware evaluates every request before it reaches the wrapped handler.
type Middleware struct {
	logger    zerolog.Logger
	engine    Evaluator
	presenter Presenter
	endpoint  EndpointFunc
}

// NewMiddleware creates a Middleware. A nil presenter uses PlainPresenter and a nil endpoint
// function leaves endpoints unnamed.
func NewMiddleware(logger zerolog.Logger, engine Evaluator, presenter Presenter, endpoint EndpointFunc) *Middleware {
	if presenter == nil {
		presenter = PlainPresenter{}
	}
	if endpoint == nil {
		endpoint = func(*http.Request) string { return "" }
	}
	return &Middleware{logger: logger, engine: engine, presenter: presenter, endpoint: endpoint}
}

// Handler wraps next.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := newHTTPRequestWrapper(r, m.endpoint(r))
		d := m.engine.Evaluate(r.Context(), req)
		m.logger.Debug().Str("txid", req.TransactionID()).Str("decision", d.Decision.String()).Msg("Request evaluated")

		switch d.Decision {
		case gate.Allow:
			next.ServeHTTP(w, r)
		case gate.Block:
			m.presenter.Block(w, r, d)
		default:
			m.presenter.Challenge(w, r, d)
		}
	})
}

// SetVerified issues a verification token for the client of r and stores it in a cookie, or
// returns it for the caller to put in the query string when cookies are disabled.
// Hosts call it after the client solved a challenge.
func SetVerified(w http.ResponseWriter, r *http.Request, engine Evaluator, tokens TokenIssuer) (token string, err error) {
	req := newHTTPRequestWrapper(r, "")

	ip, err := gate.ClientIP(req)
	if err != nil {
		return
	}
	ua, err := gate.UserAgent(req)
	if err != nil {
		return
	}

	token, err = tokens.Issue(ip, ua, time.Now())
	if err != nil {
		return
	}

	o := engine.Options()
	if o.WithoutCookies {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     gate.TokenName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(o.VerificationAge / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return
}
