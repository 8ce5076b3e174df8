package connectivity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Prober answers whether the ingestion service is reachable right now.
type Prober interface {
	Probe(ctx context.Context) error
}

// HTTPProber issues GET <server>/healthz. Any transport error or non-2xx
// status counts as unreachable.
type HTTPProber struct {
	client *http.Client
	url    string
}

func NewHTTPProber(serverURL string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{
		client: &http.Client{Timeout: timeout},
		url:    strings.TrimSuffix(serverURL, "/") + "/healthz",
	}
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}

	return nil
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error {
	return f(ctx)
}
