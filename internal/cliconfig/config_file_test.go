package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const tomlConfig = `
listen_addr = ":9000"
asset_root = "/srv/assets"
categories = ["models", "audio"]
cache_max_age = "24h"
log_json = true

[content_types]
models = "model/gltf-binary"

[rate_limit]
api_max = 10
api_window = "30s"
asset_max = 500
asset_window = "1m"
trust_proxy = true

[upload]
max_bytes = 1048576
auth_token = "tok"

[notify]
url = "https://hooks.example.com/assets"
base_delay = "2s"
max_attempts = 4
`

const yamlConfig = `
listen_addr: ":9000"
asset_root: /srv/assets
categories: [models, audio]
cache_max_age: 24h
log_json: true
content_types:
  models: model/gltf-binary
rate_limit:
  api_max: 10
  api_window: 30s
  asset_max: 500
  asset_window: 1m
  trust_proxy: true
upload:
  max_bytes: 1048576
  auth_token: tok
notify:
  url: https://hooks.example.com/assets
  base_delay: 2s
  max_attempts: 4
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadFileConfig_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"toml", "config.toml", tomlConfig},
		{"yaml", "config.yaml", yamlConfig},
		{"yml", "config.yml", yamlConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := LoadFileConfig(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("LoadFileConfig: %v", err)
			}

			cfg := DefaultConfig()
			if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err != nil {
				t.Fatalf("ApplyFileConfig: %v", err)
			}

			if cfg.ListenAddr != ":9000" || cfg.AssetRoot != "/srv/assets" {
				t.Errorf("addr/root = %q %q", cfg.ListenAddr, cfg.AssetRoot)
			}
			if len(cfg.Categories) != 2 || cfg.Categories[1] != "audio" {
				t.Errorf("Categories = %v", cfg.Categories)
			}
			if cfg.ContentTypes["models"] != "model/gltf-binary" {
				t.Errorf("ContentTypes = %v", cfg.ContentTypes)
			}
			if cfg.CacheMaxAge != 24*time.Hour {
				t.Errorf("CacheMaxAge = %v", cfg.CacheMaxAge)
			}
			if cfg.APIRateMax != 10 || cfg.APIRateWindow != 30*time.Second {
				t.Errorf("api rate = %d/%v", cfg.APIRateMax, cfg.APIRateWindow)
			}
			if cfg.AssetRateMax != 500 || !cfg.TrustProxy {
				t.Errorf("asset max = %d, trust proxy = %v", cfg.AssetRateMax, cfg.TrustProxy)
			}
			if cfg.UploadMaxBytes != 1<<20 || cfg.AuthToken != "tok" {
				t.Errorf("upload = %d %q", cfg.UploadMaxBytes, cfg.AuthToken)
			}
			if cfg.NotifyBaseDelay != 2*time.Second || cfg.NotifyMaxAttempts != 4 {
				t.Errorf("notify = %v %d", cfg.NotifyBaseDelay, cfg.NotifyMaxAttempts)
			}
			if !cfg.LogJSON {
				t.Error("LogJSON = false")
			}
			// Untouched keys keep their defaults.
			if cfg.UploadMaxFiles != DefaultConfig().UploadMaxFiles {
				t.Errorf("UploadMaxFiles = %d", cfg.UploadMaxFiles)
			}
		})
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadFileConfig(writeFile(t, "bad.toml", "listen_addr = [")); err == nil {
		t.Error("expected error for invalid toml")
	}
	if _, err := LoadFileConfig(writeFile(t, "bad.yaml", "rate_limit: [unclosed")); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestApplyFileConfig_RespectsChangedFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = ":7000"

	fc := FileConfig{ListenAddr: ":9000", AssetRoot: "/file/root"}
	if err := ApplyFileConfig(&cfg, fc, map[string]bool{"listen": true}); err != nil {
		t.Fatal(err)
	}

	if cfg.ListenAddr != ":7000" {
		t.Errorf("ListenAddr = %q, want :7000 (flag wins)", cfg.ListenAddr)
	}
	if cfg.AssetRoot != "/file/root" {
		t.Errorf("AssetRoot = %q", cfg.AssetRoot)
	}
}

func TestApplyFileConfig_InvalidDuration(t *testing.T) {
	cfg := DefaultConfig()
	fc := FileConfig{RateLimit: RateLimitFileConfig{APIWindow: "soon"}}
	if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestFileExists(t *testing.T) {
	p := writeFile(t, "x.toml", "")
	if !FileExists(p) {
		t.Error("FileExists() = false for existing file")
	}
	if FileExists(p + ".missing") {
		t.Error("FileExists() = true for missing file")
	}
}
