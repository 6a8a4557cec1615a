package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSpeak(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/speak" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		got = body.Text
	}))
	defer srv.Close()

	s := NewSpeaker(srv.URL, 0)
	if err := s.Speak(context.Background(), "Critical alert. Surveillance device detected."); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if got != "Critical alert. Surveillance device detected." {
		t.Errorf("spoken text = %q", got)
	}
}

func TestSpeak_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "synthesizer offline", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewSpeaker(srv.URL, 0)
	if err := s.Speak(context.Background(), "hello"); err == nil {
		t.Error("500 response did not produce an error")
	}
}

func TestSpeak_ServiceUnreachable(t *testing.T) {
	s := NewSpeaker("http://127.0.0.1:1", 0)
	if err := s.Speak(context.Background(), "hello"); err == nil {
		t.Error("unreachable service did not produce an error")
	}
}
