package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Grounder != "" || cfg.Cache || cfg.Compress {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.GrounderArgs, []string{"--text"}) {
		t.Errorf("GrounderArgs = %v", cfg.GrounderArgs)
	}
	if cfg.OutDir != "./out" || cfg.IndentString() != "  " {
		t.Errorf("OutDir = %q, indent = %q", cfg.OutDir, cfg.IndentString())
	}
}

func TestPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	doc := "grounder: gringo\ncompress: true\nout_dir: from-file\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GROUNDC_OUT", "from-env")
	t.Setenv("GROUNDC_GROUNDER_ARGS", "--text --const n=2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Grounder != "gringo" || !cfg.Compress {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.OutDir != "from-env" {
		t.Errorf("OutDir = %q, want from-env", cfg.OutDir)
	}
	if want := []string{"--text", "--const", "n=2"}; !reflect.DeepEqual(cfg.GrounderArgs, want) {
		t.Errorf("GrounderArgs = %v, want %v", cfg.GrounderArgs, want)
	}

	cfg.FromArgs("", "from-flag", "")
	if cfg.OutDir != "from-flag" || cfg.Grounder != "gringo" {
		t.Errorf("FromArgs: %+v", cfg)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v, want debug", cfg.Level())
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("cache: [not a bool"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected an error for a malformed config file")
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := (&Config{LogLevel: tt.in}).Level(); got != tt.want {
			t.Errorf("Level(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
