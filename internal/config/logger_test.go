package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/simp-lee/logger"
)

func boolPtr(b bool) *bool { return &b }

func TestSetupLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := SetupLogger(&LogConfig{Level: tt.level, Format: "text", Color: boolPtr(false)}, "server")
			if err != nil {
				t.Fatalf("SetupLogger error: %v", err)
			}
			defer log.Close()

			if !log.Enabled(context.Background(), tt.want) {
				t.Errorf("level %v should be enabled", tt.want)
			}
			if tt.want > slog.LevelDebug && log.Enabled(context.Background(), tt.want-1) {
				t.Errorf("level %v should be disabled", tt.want-1)
			}
		})
	}
}

func TestSetupLogger_NilConfig(t *testing.T) {
	if _, err := SetupLogger(nil, "server"); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestSetupLogger_InstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	log, err := SetupLogger(&LogConfig{Level: "warn", Format: "text"}, "claimctl")
	if err != nil {
		t.Fatalf("SetupLogger error: %v", err)
	}
	defer log.Close()

	if slog.Default().Handler() != log.Handler() {
		t.Error("slog.Default() is not the configured logger")
	}
}

func TestSetupLogger_TagsComponent(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "claimctl.log")
	log, err := SetupLogger(&LogConfig{Level: "info", Format: "json", Color: boolPtr(false), FilePath: path}, "claimctl")
	if err != nil {
		t.Fatalf("SetupLogger error: %v", err)
	}
	log.Info("claim transitioned", "claim_id", 5)
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"component":"claimctl"`) || !strings.Contains(out, "claim transitioned") {
		t.Errorf("log file missing component tag:\n%s", out)
	}
}

func TestBuildLoggerOpts(t *testing.T) {
	// level, context middleware, console format, console color
	const base = 4
	const withFile = base + 2

	tests := []struct {
		name string
		cfg  *LogConfig
		want int
	}{
		{name: "console text", cfg: &LogConfig{Level: "debug", Format: "text"}, want: base},
		{name: "unknown format", cfg: &LogConfig{Format: "pretty"}, want: base},
		{name: "color off", cfg: &LogConfig{Format: "json", Color: boolPtr(false)}, want: base},
		{name: "file", cfg: &LogConfig{Format: "json", FilePath: "/tmp/claimdesk.log"}, want: withFile},
		{
			name: "file with rotation",
			cfg: &LogConfig{
				Format: "json", FilePath: "/tmp/claimdesk.log",
				MaxSizeMB: 50, RetentionDays: 30, MaxBackups: 5, CompressRotated: boolPtr(false),
			},
			want: withFile + 4,
		},
		{
			name: "zero rotation values ignored",
			cfg:  &LogConfig{Format: "text", FilePath: "/tmp/claimdesk.log"},
			want: withFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(BuildLoggerOpts(tt.cfg)); got != tt.want {
				t.Errorf("option count = %d, want %d", got, tt.want)
			}
		})
	}

	if BuildLoggerOpts(nil) != nil {
		t.Error("nil config should yield nil options")
	}
}

func TestBuildLoggerOpts_AcceptedByLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	for _, cfg := range []*LogConfig{
		{Level: "debug", Format: "text"},
		{Level: "info", Format: "json", FilePath: path, MaxSizeMB: 10, RetentionDays: 7, MaxBackups: 3, CompressRotated: boolPtr(true)},
	} {
		log, err := logger.New(BuildLoggerOpts(cfg)...)
		if err != nil {
			t.Fatalf("logger.New(%+v): %v", cfg, err)
		}
		_ = log.Close()
	}
}
