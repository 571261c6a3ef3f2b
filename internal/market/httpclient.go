package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// unavailableError marks a source response that should be treated as "source
// down" rather than an authoritative answer (timeouts, 5xx, and also 403/404:
// some upstreams hide endpoints behind those instead of failing honestly).
type unavailableError struct {
	source string
	status int
	err    error
}

func (e *unavailableError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s unavailable: %v", e.source, e.err)
	}
	return fmt.Sprintf("%s unavailable: status %d", e.source, e.status)
}

func (e *unavailableError) Unwrap() error { return e.err }

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// getJSON performs a single GET and decodes the JSON body into v. There is
// deliberately no retry here: the reconciliation loop's next tick is the
// retry, and chain fallback covers the rest within a call.
func getJSON(ctx context.Context, client *http.Client, source, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := client.Do(req)
	if err != nil {
		return &unavailableError{source: source, err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &unavailableError{source: source, status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &unavailableError{source: source, err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
