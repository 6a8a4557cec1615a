// Package voice delivers spoken alerts through a text-to-speech HTTP
// endpoint.
package voice

import (
	"bytes"
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
var _ sentry.VoiceSink = (*Speaker)(nil)

// Speaker posts text to a TTS service. Speech synthesis is slow relative to
// API calls, so the timeout leaves room for the service to finish speaking.
type Speaker struct {
	httpClient *http.Client
	baseURL    string
}

// NewSpeaker creates a TTS client.
func NewSpeaker(baseURL string, timeout time.Duration) *Speaker {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Speaker{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Speak synthesizes and plays the given text. Returns once the service has
// accepted the utterance.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal speak request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/speak", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http POST /speak: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tts service returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
