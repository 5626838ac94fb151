package gate

import (
	"context"
	"sync"
	"time"

	"riskgate/policy"
)

type mockHeaderPair struct {
	k string
	v string
}

func (h *mockHeaderPair) Key() string   { return h.k }
func (h *mockHeaderPair) Value() string { return h.v }

type mockHTTPRequest struct {
	path       string
	endpoint   string
	remoteAddr string
	headers    []HeaderPair
	cookies    map[string]string
	query      map[string]string
}

func newMockRequest(path string, remoteAddr string, headers ...string) *mockHTTPRequest {
	r := &mockHTTPRequest{path: path, remoteAddr: remoteAddr, cookies: map[string]string{}, query: map[string]string{}}
	for i := 0; i+1 < len(headers); i += 2 {
		r.headers = append(r.headers, &mockHeaderPair{k: headers[i], v: headers[i+1]})
	}
	return r
}

func (r *mockHTTPRequest) Method() string              { return "GET" }
func (r *mockHTTPRequest) Path() string                { return r.path }
func (r *mockHTTPRequest) Endpoint() string            { return r.endpoint }
func (r *mockHTTPRequest) RemoteAddr() string          { return r.remoteAddr }
func (r *mockHTTPRequest) Headers() []HeaderPair       { return r.headers }
func (r *mockHTTPRequest) Cookie(name string) string   { return r.cookies[name] }
func (r *mockHTTPRequest) QueryArg(name string) string { return r.query[name] }
func (r *mockHTTPRequest) TransactionID() string       { return "abc" }

type mockResolver struct {
	mu            sync.Mutex
	resolveCalled int
	result        policy.Result
}

func (m *mockResolver) Resolve(routeKey string, endpointName string, table policy.Table, defaultHardness int) policy.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolveCalled++
	return m.result
}

type mockLists struct {
	mu            sync.Mutex
	matchesCalled int
	listed        map[string][]string
}

func (m *mockLists) Matches(address string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesCalled++
	return m.listed[address]
}

type mockCrawlers struct {
	mu              sync.Mutex
	isCrawlerCalled int
	crawler         bool
}

func (m *mockCrawlers) IsCrawler(userAgent string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isCrawlerCalled++
	return m.crawler
}

type mockVerifier struct {
	mu              sync.Mutex
	isSpammerCalled int
	spammer         bool
	err             error
}

func (m *mockVerifier) IsSpammer(ctx context.Context, clientIP string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isSpammerCalled++
	return m.spammer, m.err
}

type mockTokens struct {
	mu          sync.Mutex
	validCalled int
	validToken  string
	lastToken   string
}

func (m *mockTokens) Valid(token string, clientIP string, userAgent string, now time.Time, maxAge time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validCalled++
	m.lastToken = token
	return token != "" && token == m.validToken
}

type mockResultsLogger struct {
	mu                           sync.Mutex
	requestChallengedCalled      int
	requestBlockedCalled         int
	reputationLookupFailedCalled int
}

func (m *mockResultsLogger) RequestChallenged(request ResultsLoggerHTTPRequest, clientIP string, d Disposition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestChallengedCalled++
}

func (m *mockResultsLogger) RequestBlocked(request ResultsLoggerHTTPRequest, clientIP string, d Disposition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestBlockedCalled++
}

func (m *mockResultsLogger) ReputationLookupFailed(request ResultsLoggerHTTPRequest, clientIP string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reputationLookupFailedCalled++
}
