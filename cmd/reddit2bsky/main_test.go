package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/StuxnetStudios/reddit-2-bsky/internal/config"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/store"
)

// writeTestConfig writes a config file rooted in a temp directory and
// returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[reddit]
subreddits = ["ProgrammerHumor", "memes"]
`, filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCooldownShowAndClear(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", configPath, "cooldown", "show")
	if err != nil {
		t.Fatalf("cooldown show: %v", err)
	}
	if !strings.Contains(out, "No cooldown set") {
		t.Fatalf("output = %q, want no cooldown", out)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	until := time.Now().Add(time.Hour).UTC()
	if err := st.SetCooldownUntil(context.Background(), &until); err != nil {
		t.Fatalf("SetCooldownUntil: %v", err)
	}
	st.Close()

	out, err = runCommand(t, "--config", configPath, "cooldown", "show")
	if err != nil {
		t.Fatalf("cooldown show: %v", err)
	}
	if !strings.Contains(out, "Cooldown active until") {
		t.Fatalf("output = %q, want active cooldown", out)
	}

	if _, err := runCommand(t, "--config", configPath, "cooldown", "clear"); err != nil {
		t.Fatalf("cooldown clear: %v", err)
	}
	out, err = runCommand(t, "--config", configPath, "cooldown", "show")
	if err != nil {
		t.Fatalf("cooldown show: %v", err)
	}
	if !strings.Contains(out, "No cooldown set") {
		t.Fatalf("output after clear = %q, want no cooldown", out)
	}
}

func TestHistoryCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", configPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "Nothing published yet") {
		t.Fatalf("output = %q, want empty notice", out)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if err := st.RecordPosted(context.Background(), "abc123", "0f0f0f0f0f0f0f0f"); err != nil {
		t.Fatalf("RecordPosted: %v", err)
	}
	st.Close()

	out, err = runCommand(t, "--config", configPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "abc123") || !strings.Contains(out, "0f0f0f0f0f0f0f0f") {
		t.Fatalf("output = %q, want recorded entry", out)
	}
	if !strings.Contains(out, "1 of 1 total") {
		t.Fatalf("output = %q, want total line", out)
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("output = %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error without --overwrite")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestSelectSubredditsFromArguments(t *testing.T) {
	cfg := config.Default()
	cfg.Reddit.Subreddits = []string{"configured"}

	cmd := newRootCommand()
	got, err := selectSubreddits(cmd, &cfg, []string{"r/golang", " memes ", ""}, false)
	if err != nil {
		t.Fatalf("selectSubreddits: %v", err)
	}
	if len(got) != 2 || got[0] != "golang" || got[1] != "memes" {
		t.Fatalf("subreddits = %v", got)
	}
}

func TestSelectSubredditsAllFlag(t *testing.T) {
	cfg := config.Default()
	cfg.Reddit.Subreddits = []string{"one", "two"}

	cmd := newRootCommand()
	got, err := selectSubreddits(cmd, &cfg, nil, true)
	if err != nil {
		t.Fatalf("selectSubreddits: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("subreddits = %v, want configured list", got)
	}
}

func TestPromptSubredditsParsesSelection(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("2 1\n"))

	got, err := promptSubreddits(cmd, []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatalf("promptSubreddits: %v", err)
	}
	if len(got) != 2 || got[0] != "beta" || got[1] != "alpha" {
		t.Fatalf("selection = %v", got)
	}
}

func TestPromptSubredditsEmptyMeansAll(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("\n"))

	got, err := promptSubreddits(cmd, []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("promptSubreddits: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("selection = %v, want all", got)
	}
}

func TestPromptSubredditsRejectsBadIndex(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("9\n"))

	if _, err := promptSubreddits(cmd, []string{"alpha", "beta"}); err == nil {
		t.Fatal("expected error for out-of-range selection")
	}
}
