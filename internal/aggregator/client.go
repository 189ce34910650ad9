// Package aggregator posts scaled partials to the remote aggregation
// service: a JSON body over a plain http.Client with a fixed timeout,
// status-code based success/failure. There is no retry — fail-fast, so
// a broken aggregator never silently loses data behind a retry loop
// that masks the failure.
package aggregator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opal-project/opalrunner/internal/partial"
)

const requestTimeout = 30 * time.Second

// Error reports an aggregator post failure: a non-200 response or a
// transport-level failure. It always aborts the Collector.
type Error struct {
	StatusCode int
	Reason     string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("aggregator: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("aggregator: %s", e.Reason)
}

// payload is the wire body posted to the aggregation service.
type payload struct {
	Update partial.Partial `json:"update"`
}

// Client posts scaled partials to a single aggregation service URL,
// owned exclusively by the Collector — no Mapper Worker touches the
// network.
type Client struct {
	url        string
	httpClient *http.Client
}

// New creates a Client bound to url. url is read once from the Parameter
// Bundle's recognized aggregationServiceUrl key when Runner.Run starts.
func New(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Post issues one HTTP POST of {"update": scaled} as JSON. Success iff the
// response status is 200; any other status, or a transport failure,
// returns an *Error. There is no automatic retry.
func (c *Client) Post(scaled partial.Partial) error {
	body, err := json.Marshal(payload{Update: scaled})
	if err != nil {
		return &Error{Reason: fmt.Sprintf("marshal payload: %v", err)}
	}

	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &Error{Reason: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{StatusCode: resp.StatusCode}
	}
	return nil
}
