// Package backendping probes the /api/v1/<service>/ping endpoints of the
// platform's backend services.
package backendping

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jobmatcher/jm-portal/internal/ports"
)

const maxPingBody = 4 << 10

// Pinger issues plain GET requests without credentials.
type Pinger struct {
	client *http.Client
}

var _ ports.BackendPinger = (*Pinger)(nil)

// New returns a Pinger. A nil client gets a 5s timeout client.
func New(client *http.Client) *Pinger {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Pinger{client: client}
}

// PingURL builds the ping endpoint for service under baseURL.
func PingURL(baseURL, service string) string {
	return strings.TrimRight(baseURL, "/") + "/api/v1/" + strings.Trim(service, "/") + "/ping"
}

// Ping returns the trimmed response body of a 2xx ping.
func (p *Pinger) Ping(ctx context.Context, baseURL, service string) (string, error) {
	if strings.TrimSpace(baseURL) == "" {
		return "", fmt.Errorf("ping %s: base URL not configured", service)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, PingURL(baseURL, service), nil)
	if err != nil {
		return "", fmt.Errorf("ping %s: %w", service, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ping %s: %w", service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPingBody))
	if err != nil {
		return "", fmt.Errorf("ping %s: read body: %w", service, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("ping %s: status %d", service, resp.StatusCode)
	}
	return strings.TrimSpace(string(body)), nil
}
