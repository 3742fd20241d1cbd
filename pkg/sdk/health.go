package ragpipe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Health checks the health of the server's pipeline components.
// A degraded pipeline is reported in the result, not as an error: the
// server answers 503 with the same report body.
func (c *Client) Health(ctx context.Context) (report HealthReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return HealthReport{}, fmt.Errorf("ragpipe: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return HealthReport{}, fmt.Errorf("ragpipe: GET /health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthReport{}, decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return HealthReport{}, fmt.Errorf("ragpipe: decode response: %w", err)
	}
	return report, nil
}
