package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/airwarden/airwarden/pkg/plugin"
	"go.uber.org/zap"
)

// fakePlugins satisfies PluginSource for server tests.
type fakePlugins struct {
	routes map[string][]plugin.Route
	all    []plugin.Plugin
}

func (f *fakePlugins) AllRoutes() map[string][]plugin.Route { return f.routes }
func (f *fakePlugins) All() []plugin.Plugin                 { return f.all }

type infoOnlyPlugin struct {
	info plugin.PluginInfo
}

func (p *infoOnlyPlugin) Info() plugin.PluginInfo { return p.info }
func (p *infoOnlyPlugin) Init(context.Context, plugin.Dependencies) error {
	return nil
}
func (p *infoOnlyPlugin) Start(context.Context) error { return nil }
func (p *infoOnlyPlugin) Stop(context.Context) error  { return nil }

func testServer(t *testing.T, plugins PluginSource, ready ReadinessChecker) *Server {
	t.Helper()
	if plugins == nil {
		plugins = &fakePlugins{}
	}
	return New("127.0.0.1:0", plugins, zap.NewNop(), ready, nil)
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "198.51.100.7:4242"
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := testServer(t, nil, nil)

	rec := serve(s, "GET", "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "alive" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestReadyz(t *testing.T) {
	healthy := testServer(t, nil, func(context.Context) error { return nil })
	if rec := serve(healthy, "GET", "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("healthy readyz status = %d, want 200", rec.Code)
	}

	sick := testServer(t, nil, func(context.Context) error { return errors.New("db down") })
	rec := serve(sick, "GET", "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("sick readyz status = %d, want 503", rec.Code)
	}
}

func TestAPIHealth(t *testing.T) {
	s := testServer(t, nil, nil)

	rec := serve(s, "GET", "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Service != "airwarden" || body.Status != "ok" {
		t.Errorf("health = %+v", body)
	}
}

func TestPluginsEndpoint(t *testing.T) {
	plugins := &fakePlugins{
		all: []plugin.Plugin{
			&infoOnlyPlugin{info: plugin.PluginInfo{
				Name: "sentry", Version: "0.1.0", Description: "alerting",
			}},
		},
	}
	s := testServer(t, plugins, nil)

	rec := serve(s, "GET", "/api/v1/plugins")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body []PluginResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body) != 1 || body[0].Name != "sentry" {
		t.Errorf("plugins = %v", body)
	}
}

func TestPluginRoutesMounted(t *testing.T) {
	plugins := &fakePlugins{
		routes: map[string][]plugin.Route{
			"sentry": {
				{Method: "GET", Path: "/alerts", Handler: func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusTeapot)
				}},
			},
		},
	}
	s := testServer(t, plugins, nil)

	rec := serve(s, "GET", "/api/v1/sentry/alerts")
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want plugin handler's 418", rec.Code)
	}
}

func TestSecurityAndVersionHeaders(t *testing.T) {
	s := testServer(t, nil, nil)

	rec := serve(s, "GET", "/healthz")
	headers := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'self'",
	}
	for name, want := range headers {
		if got := rec.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if rec.Header().Get("X-AirWarden-Version") == "" {
		t.Error("X-AirWarden-Version header missing")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	s := testServer(t, nil, nil)
	if rec := serve(s, "GET", "/api/v1/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
