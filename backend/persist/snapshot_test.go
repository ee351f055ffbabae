package persist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"isolate/backend/domain"
)

type staticStore struct {
	state domain.ServiceState
}

func (s *staticStore) Snapshot() domain.ServiceState { return s.state }

func (s *staticStore) LoadState(state domain.ServiceState) { s.state = state }

func TestSnapshotter_Load_NoFileReturnsDefaultState(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	s := NewSnapshotter(path, &staticStore{})
	state, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if state.SchemaVersion != SchemaVersion {
		t.Fatalf("expected schemaVersion %q, got %q", SchemaVersion, state.SchemaVersion)
	}
	if len(state.Proxies) != 0 {
		t.Fatalf("expected empty state, got %d proxies", len(state.Proxies))
	}
}

func TestSnapshotter_SaveNow_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	store := &staticStore{state: domain.ServiceState{
		Proxies: []domain.ProxyConfig{
			{ID: "p1", Name: "P1", Protocol: domain.ProtocolTrojan, Server: "example.com", Port: 443, Password: "x", TLS: true},
		},
		Subscriptions: []domain.Subscription{
			{ID: "s1", Name: "S1", SourceURL: "https://example.com/sub"},
		},
	}}
	s := NewSnapshotter(path, store)

	if err := s.SaveNow(); err != nil {
		t.Fatalf("SaveNow() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	var raw domain.ServiceState
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if raw.SchemaVersion != SchemaVersion {
		t.Fatalf("expected schemaVersion %q, got %q", SchemaVersion, raw.SchemaVersion)
	}
	if raw.GeneratedAt.IsZero() {
		t.Fatal("expected generatedAt to be set")
	}

	state, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(state.Proxies) != 1 || state.Proxies[0].ID != "p1" {
		t.Fatalf("expected proxy p1 to round trip, got %+v", state.Proxies)
	}
	if len(state.Subscriptions) != 1 || state.Subscriptions[0].ID != "s1" {
		t.Fatalf("expected subscription s1 to round trip, got %+v", state.Subscriptions)
	}
}

func TestLoad_RejectsUnknownSchemaVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"schemaVersion":"99.0.0"}`), 0644); err != nil {
		t.Fatalf("write state file: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown schemaVersion")
	}
	if !strings.Contains(err.Error(), "unsupported schemaVersion") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoad_AcceptsLegacyStateWithoutVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"proxies":[{"id":"p1","protocol":"socks5","server":"h","port":1080}]}`), 0644); err != nil {
		t.Fatalf("write state file: %v", err)
	}

	state, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if state.SchemaVersion != SchemaVersion {
		t.Fatalf("expected version to be stamped, got %q", state.SchemaVersion)
	}
	if len(state.Proxies) != 1 || state.Proxies[0].ID != "p1" {
		t.Fatalf("expected legacy proxy to load, got %+v", state.Proxies)
	}
}
