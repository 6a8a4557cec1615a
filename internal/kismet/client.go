// Package kismet provides a REST client for the Kismet wireless monitor,
// exposing its device and IDS alert feeds as detection sources.
package kismet

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
var _ sentry.DeviceScanner = (*Client)(nil)

// Client wraps the Kismet REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a new Kismet API client. Kismet runs on the same host
// in the common deployment, so the default timeout is short.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Devices returns the wireless devices Kismet currently tracks for a phy.
func (c *Client) Devices(ctx context.Context, phy string) ([]sentry.WirelessDevice, error) {
	path := "/devices/all_devices.json"
	if phy == "wifi" {
		path = "/devices/views/phydot11_accesspoints/devices.json"
	}

	var raw []kismetDevice
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	out := make([]sentry.WirelessDevice, 0, len(raw))
	for _, d := range raw {
		if d.MAC == "" {
			continue
		}
		out = append(out, sentry.WirelessDevice{
			DeviceID:    d.MAC,
			NetworkName: d.Name,
			SignalDBm:   int(d.Signal),
		})
	}
	return out, nil
}

// RecentAlerts returns Kismet's IDS alert backlog, most recent first.
func (c *Client) RecentAlerts(ctx context.Context) ([]sentry.ScannerAlert, error) {
	var raw []kismetAlert
	if err := c.getJSON(ctx, "/alerts/all_alerts.json", &raw); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	out := make([]sentry.ScannerAlert, 0, len(raw))
	for _, a := range raw {
		out = append(out, sentry.ScannerAlert{
			ID:     a.id(),
			Header: a.header(),
			Text:   a.text(),
		})
	}
	return out, nil
}

// kismetDevice maps the dotted field names of Kismet's device records.
type kismetDevice struct {
	MAC    string      `json:"kismet.device.base.macaddr"`
	Name   string      `json:"kismet.device.base.name"`
	Signal signalValue `json:"kismet.device.base.signal"`
}

// signalValue accepts both encodings Kismet uses for signal data: a bare
// dBm number, or a nested object carrying last_signal.
type signalValue float64

func (s *signalValue) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*s = signalValue(n)
		return nil
	}

	var nested struct {
		LastSignal float64 `json:"kismet.common.signal.last_signal"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return fmt.Errorf("unexpected signal encoding: %s", string(data))
	}
	*s = signalValue(nested.LastSignal)
	return nil
}

// kismetAlert maps alert records, tolerating both the dotted and the
// simplified field names Kismet emits.
type kismetAlert struct {
	RawID      json.Number `json:"id"`
	Type       string      `json:"type"`
	DottedHead string      `json:"kismet.alert.header"`
	RawText    string      `json:"text"`
	DottedText string      `json:"kismet.alert.text"`
}

func (a kismetAlert) id() string { return a.RawID.String() }

func (a kismetAlert) header() string {
	if a.Type != "" {
		return a.Type
	}
	if a.DottedHead != "" {
		return a.DottedHead
	}
	return "Unknown"
}

func (a kismetAlert) text() string {
	if a.RawText != "" {
		return a.RawText
	}
	return a.DottedText
}

// getJSON performs a GET request with JSON deserialization.
func (c *Client) getJSON(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("KISMET", c.apiKey)
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
		return fmt.Errorf("kismet API GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
