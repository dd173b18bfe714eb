package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"STORE_DRIVER", "BLOB_BACKEND", "VECTOR_BACKEND", "AUTO_PROCESS_ON_UPLOAD", "OLLAMA_TIMEOUT", "API_RATE_LIMIT_RPS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.StoreDriver != "postgres" || cfg.BlobBackend != "localfs" || cfg.VectorBackend != "qdrant" {
		t.Fatalf("unexpected backends %q/%q/%q", cfg.StoreDriver, cfg.BlobBackend, cfg.VectorBackend)
	}
	if !cfg.AutoProcess {
		t.Fatalf("expected auto processing on by default")
	}
	if cfg.OllamaTimeout != 120*time.Second {
		t.Fatalf("expected default ollama timeout, got %s", cfg.OllamaTimeout)
	}
	if cfg.APIRateLimitRPS != 20 {
		t.Fatalf("expected default rps 20, got %v", cfg.APIRateLimitRPS)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("AUTO_PROCESS_ON_UPLOAD", "false")
	t.Setenv("OLLAMA_TIMEOUT", "45s")
	t.Setenv("CHAT_TOP_K", "8")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")

	cfg := Load()
	if cfg.StoreDriver != "mongo" {
		t.Fatalf("expected lower-cased driver, got %q", cfg.StoreDriver)
	}
	if cfg.AutoProcess {
		t.Fatalf("expected auto processing disabled")
	}
	if cfg.OllamaTimeout != 45*time.Second {
		t.Fatalf("expected 45s, got %s", cfg.OllamaTimeout)
	}
	if cfg.ChatTopK != 8 || cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("unexpected overrides %d %v", cfg.ChatTopK, cfg.APIRateLimitRPS)
	}
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "big")
	t.Setenv("WORKER_PROCESS_TIMEOUT", "-1m")
	t.Setenv("BREAKER_ENABLED", "maybe")

	cfg := Load()
	if cfg.ChunkSize != 900 || cfg.WorkerProcessTimeout != 5*time.Minute || !cfg.BreakerEnabled {
		t.Fatalf("expected fallbacks, got %d %s %v", cfg.ChunkSize, cfg.WorkerProcessTimeout, cfg.BreakerEnabled)
	}
}

func TestLoadCategorySeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	content := "categories:\n  - name: Invoices\n    description: Bills with totals\n  - name: Contracts\n    description: Legal agreements\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	seed, err := LoadCategorySeed(path)
	if err != nil {
		t.Fatalf("LoadCategorySeed() error = %v", err)
	}
	if len(seed) != 2 || seed[1].Name != "Contracts" || seed[1].Description != "Legal agreements" {
		t.Fatalf("unexpected seed %+v", seed)
	}
}

func TestLoadCategorySeedRejectsIncompleteEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	if err := os.WriteFile(path, []byte("categories:\n  - name: Invoices\n"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := LoadCategorySeed(path); err == nil {
		t.Fatalf("expected error for missing description")
	}
	if seed, err := LoadCategorySeed(""); err != nil || seed != nil {
		t.Fatalf("expected empty seed for empty path, got %v %v", seed, err)
	}
}

func TestLoadDashboard(t *testing.T) {
	t.Setenv("DASHBOARD_SOURCE", "Fixture")
	t.Setenv("DASHBOARD_POLL_INTERVAL", "nope")
	t.Setenv("DASHBOARD_FIXTURE_FILE", "/tmp/fixture.yaml")

	cfg := LoadDashboard()
	if cfg.Source != "fixture" {
		t.Fatalf("expected lower-cased source, got %q", cfg.Source)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("expected default poll interval, got %s", cfg.PollInterval)
	}
	if cfg.FixtureFile != "/tmp/fixture.yaml" {
		t.Fatalf("unexpected fixture file %q", cfg.FixtureFile)
	}
}
