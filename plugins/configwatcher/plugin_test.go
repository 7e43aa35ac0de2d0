package configwatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/assetcdn/pkg/assetcdn"
	"github.com/bft-labs/assetcdn/pkg/ratelimit"
)

type tunerMock struct {
	mu    sync.Mutex
	calls []ratelimit.Profile
}

func (m *tunerMock) SetRateProfiles(api, asset ratelimit.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, api, asset)
}

func (m *tunerMock) Calls() []ratelimit.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ratelimit.Profile(nil), m.calls...)
}

// loadMaxes parses "api=<n> asset=<n>".
func loadMaxes(path string) (ratelimit.Profile, ratelimit.Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ratelimit.Profile{}, ratelimit.Profile{}, err
	}
	api := ratelimit.Profile{Window: time.Minute}
	asset := ratelimit.Profile{Window: time.Minute}
	for _, f := range strings.Fields(string(b)) {
		k, v, _ := strings.Cut(f, "=")
		n, err := strconv.Atoi(v)
		if err != nil {
			return ratelimit.Profile{}, ratelimit.Profile{}, err
		}
		switch k {
		case "api":
			api.MaxRequests = n
		case "asset":
			asset.MaxRequests = n
		}
	}
	return api, asset, nil
}

type reloadResult struct {
	api, asset ratelimit.Profile
	err        error
}

func startPlugin(t *testing.T, path string, tuner *tunerMock) (*Plugin, chan reloadResult) {
	t.Helper()
	results := make(chan reloadResult, 8)
	p := New(Config{
		Path:          path,
		Load:          loadMaxes,
		DebounceDelay: 20 * time.Millisecond,
		OnReload: func(api, asset ratelimit.Profile, err error) {
			results <- reloadResult{api, asset, err}
		},
	})

	if err := p.Initialize(context.Background(), assetcdn.PluginConfig{Rates: tuner}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p, results
}

func waitReload(t *testing.T, results chan reloadResult) reloadResult {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
		return reloadResult{}
	}
}

func TestPlugin_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("api=10 asset=100"), 0o644); err != nil {
		t.Fatal(err)
	}

	tuner := &tunerMock{}
	_, results := startPlugin(t, path, tuner)

	if err := os.WriteFile(path, []byte("api=5 asset=50"), 0o644); err != nil {
		t.Fatal(err)
	}

	// A write may surface as truncate and write events; wait for the good one.
	for r := waitReload(t, results); r.err != nil; r = waitReload(t, results) {
	}

	calls := tuner.Calls()
	if len(calls) != 2 {
		t.Fatalf("SetRateProfiles calls = %d, want 1", len(calls)/2)
	}
	if calls[0].MaxRequests != 5 || calls[1].MaxRequests != 50 {
		t.Errorf("profiles = %+v", calls)
	}
}

func TestPlugin_InvalidFileKeepsProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("api=10 asset=100"), 0o644); err != nil {
		t.Fatal(err)
	}

	tuner := &tunerMock{}
	_, results := startPlugin(t, path, tuner)

	if err := os.WriteFile(path, []byte("api=oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := waitReload(t, results); r.err == nil {
		t.Fatal("expected reload error")
	}

	if err := os.WriteFile(path, []byte("api=0 asset=10"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := waitReload(t, results); r.err == nil {
		t.Fatal("expected error for zero ceiling")
	}

	if calls := tuner.Calls(); len(calls) != 0 {
		t.Errorf("SetRateProfiles called with %+v", calls)
	}
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("api=10 asset=100"), 0o644); err != nil {
		t.Fatal(err)
	}

	tuner := &tunerMock{}
	_, results := startPlugin(t, path, tuner)

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("api=1 asset=1"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-results:
		t.Fatalf("unexpected reload: %+v", r)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestPlugin_DisabledWithoutPath(t *testing.T) {
	p := New(Config{})
	if err := p.Initialize(context.Background(), assetcdn.PluginConfig{Rates: &tunerMock{}}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if p.Name() != "configwatcher" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestPlugin_MissingDirectory(t *testing.T) {
	p := New(Config{Path: filepath.Join(t.TempDir(), "nope", "config.toml"), Load: loadMaxes})
	err := p.Initialize(context.Background(), assetcdn.PluginConfig{Rates: &tunerMock{}})
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("unexpected error kind: %v", err)
	}
}
