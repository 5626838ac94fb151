// Package stopforumspam queries the StopForumSpam reputation API and caches its verdicts.
package stopforumspam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrExternalService is returned when the API cannot be reached or its answer cannot be understood.
var ErrExternalService = errors.New("reputation service error")

// DefaultBaseURL is the public StopForumSpam endpoint.
const DefaultBaseURL = "https://api.stopforumspam.org"

// DefaultTimeout bounds one API call, including connecting and reading the answer.
const DefaultTimeout = 3 * time.Second

// Client performs one HTTP GET per query.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client. Zero values select DefaultBaseURL and DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				MaxIdleConnsPerHost:   16,
			},
		},
	}
}

type apiResponse struct {
	Success int `json:"success"`
	IP      *struct {
		Appears   int    `json:"appears"`
		Frequency int    `json:"frequency"`
		LastSeen  string `json:"lastseen"`
	} `json:"ip"`
	Error string `json:"error"`
}

// Query reports whether ip appears in the spam database.
func (c *Client) Query(ctx context.Context, ip string) (spammer bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.client.Timeout)
	defer cancel()

	u := fmt.Sprintf("%s/api?ip=%s&json", c.baseURL, url.QueryEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrExternalService, err)
		return
	}

	resp, err := c.client.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrExternalService, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		err = fmt.Errorf("%w: unexpected status %v", ErrExternalService, resp.Status)
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrExternalService, err)
		return
	}

	var parsed apiResponse
	if err = json.Unmarshal(body, &parsed); err != nil {
		err = fmt.Errorf("%w: unparsable answer: %v", ErrExternalService, err)
		return
	}
	if parsed.IP == nil {
		err = fmt.Errorf("%w: answer has no ip result %q", ErrExternalService, parsed.Error)
		return
	}

	spammer = parsed.IP.Appears > 0
	return
}
