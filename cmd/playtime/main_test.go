package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommandListsSubcommands(t *testing.T) {
	output, err := runCommand(t, "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, name := range []string{"resolve", "import", "history", "cache", "config", "serve"} {
		if !strings.Contains(output, name) {
			t.Errorf("help output missing %q subcommand", name)
		}
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	output, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Fatalf("expected output to mention %s, got %q", target, output)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[catalog]") {
		t.Fatal("sample config missing [catalog] section")
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(target, []byte("# existing\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected overwrite refusal")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestResolveRejectsInvalidAppID(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PLAYTIME_PATHS_CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("PLAYTIME_PATHS_LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("HOME", dir)

	if _, err := runCommand(t, "resolve", "not-a-number"); err == nil {
		t.Fatal("expected invalid app id error")
	}
}
