// Package tracker provides a REST client for the correlation engine,
// exposing its cluster and convergence state as a detection source.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/airwarden/airwarden/internal/sentry"
)

// Compile-time interface guard.
var _ sentry.Correlator = (*Client)(nil)

// Client wraps the correlation engine REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a new correlation engine client.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

// Clusters returns the engine's current clusters keyed by cluster ID.
func (c *Client) Clusters(ctx context.Context) (map[string]sentry.Cluster, error) {
	var raw map[string]trackerCluster
	if err := c.getJSON(ctx, "/api/v1/clusters", &raw); err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}

	out := make(map[string]sentry.Cluster, len(raw))
	for id, tc := range raw {
		out[id] = sentry.Cluster{
			Confidence:  tc.Confidence,
			ClusterType: tc.ClusterType,
			MemberCount: tc.MemberCount,
			Label:       tc.Label,
			NetworkIDs:  tc.SSIDs,
		}
	}
	return out, nil
}

// ConvergenceInfo returns the engine's RSSI tolerance convergence state.
func (c *Client) ConvergenceInfo(ctx context.Context) (sentry.ConvergenceInfo, error) {
	var raw struct {
		ConvergencePct float64 `json:"convergence_pct"`
		Converged      bool    `json:"converged"`
		RSSIGapDBm     float64 `json:"rssi_gap_dbm"`
		Step           int     `json:"step"`
	}
	if err := c.getJSON(ctx, "/api/v1/convergence", &raw); err != nil {
		return sentry.ConvergenceInfo{}, fmt.Errorf("convergence info: %w", err)
	}
	return sentry.ConvergenceInfo{
		ConvergencePct: raw.ConvergencePct,
		Converged:      raw.Converged,
		RSSIGapDBm:     raw.RSSIGapDBm,
		Step:           raw.Step,
	}, nil
}

type trackerCluster struct {
	Confidence  float64  `json:"confidence"`
	ClusterType string   `json:"cluster_type"`
	MemberCount int      `json:"member_count"`
	Label       string   `json:"label"`
	SSIDs       []string `json:"ssids"`
}

// getJSON performs a GET request with JSON deserialization.
func (c *Client) getJSON(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("tracker API GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
