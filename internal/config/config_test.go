package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/StuxnetStudios/reddit-2-bsky/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if got := cfg.Reddit.Subreddits; len(got) != 1 || got[0] != "ProgrammerHumor" {
		t.Fatalf("unexpected default subreddits: %v", got)
	}
	if cfg.Bluesky.PDSURL != "https://bsky.social" {
		t.Fatalf("unexpected default pds url: %q", cfg.Bluesky.PDSURL)
	}
	if cfg.Pipeline.PostLimit != 0 {
		t.Fatalf("expected unlimited default post limit, got %d", cfg.Pipeline.PostLimit)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[reddit]
subreddits = ["r/funny", " aww ", ""]
min_score = 50

[bluesky]
pds_url = "https://pds.example.com/"

[pipeline]
post_limit = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatal("expected config file to be found")
	}
	want := []string{"funny", "aww"}
	if len(cfg.Reddit.Subreddits) != len(want) {
		t.Fatalf("unexpected subreddits: %v", cfg.Reddit.Subreddits)
	}
	for i, name := range want {
		if cfg.Reddit.Subreddits[i] != name {
			t.Fatalf("subreddit %d = %q, want %q", i, cfg.Reddit.Subreddits[i], name)
		}
	}
	if strings.HasSuffix(cfg.Bluesky.PDSURL, "/") {
		t.Fatalf("pds url not trimmed: %q", cfg.Bluesky.PDSURL)
	}
	if cfg.Pipeline.PostLimit != 3 {
		t.Fatalf("post limit = %d, want 3", cfg.Pipeline.PostLimit)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"negative min score", func(c *config.Config) { c.Reddit.MinScore = -1 }},
		{"zero reddit timeout", func(c *config.Config) { c.Reddit.RequestTimeout = 0 }},
		{"empty pds url", func(c *config.Config) { c.Bluesky.PDSURL = "" }},
		{"negative post limit", func(c *config.Config) { c.Pipeline.PostLimit = -2 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()

	if got := cfg.DatabasePath(); filepath.Dir(got) != cfg.Paths.DataDir {
		t.Fatalf("database path %q not under data dir", got)
	}
	if got := cfg.TempDir(); filepath.Dir(got) != cfg.Paths.DataDir {
		t.Fatalf("temp dir %q not under data dir", got)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if _, err := os.Stat(cfg.TempDir()); err != nil {
		t.Fatalf("temp dir missing after EnsureDirectories: %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly: exists=%v err=%v", exists, err)
	}
}
