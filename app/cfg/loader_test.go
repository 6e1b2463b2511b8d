package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATA_DIR", "LEDGER_FILE", "LOCK_FILE", "SOURCES_DIR", "DB_PATH", "RETENTION",
		"PUBLISHER", "GRAPH_TOKEN", "GRAPH_API_URL", "RECIPIENTS", "MIN_DELAY", "MAX_DELAY",
		"SERVE", "PORT", "API_ACCESS_KEY", "USER_AGENT", "LOG_FILE", "TZ", "DEBUG",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadArgs("", []string{"--data-dir", "/var/lib/newsrelay"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.LedgerFile != filepath.Join("/var/lib/newsrelay", "sent_posts.json") {
		t.Errorf("Unexpected ledger file: %s", cfg.LedgerFile)
	}
	if cfg.LockFile != filepath.Join("/var/lib/newsrelay", "locks", "pipeline.lock") {
		t.Errorf("Unexpected lock file: %s", cfg.LockFile)
	}
	if cfg.DBPath != filepath.Join("/var/lib/newsrelay", "newsrelay.db") {
		t.Errorf("Unexpected db path: %s", cfg.DBPath)
	}
	if cfg.Retention != 7*24*time.Hour {
		t.Errorf("Expected 7 day retention, got %s", cfg.Retention)
	}
	if cfg.Publisher != PublisherLog {
		t.Errorf("Expected log publisher, got %s", cfg.Publisher)
	}
	if cfg.MinDelay != time.Second || cfg.MaxDelay != 3*time.Second {
		t.Errorf("Unexpected delays: %s..%s", cfg.MinDelay, cfg.MaxDelay)
	}
	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "PUBLISHER=messenger\nGRAPH_TOKEN=page-token\nRECIPIENTS=111:Rada,222\nRETENTION=48h\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		for _, key := range []string{"PUBLISHER", "GRAPH_TOKEN", "RECIPIENTS", "RETENTION"} {
			os.Unsetenv(key)
		}
	})

	cfg, err := LoadArgs(envFile, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Publisher != PublisherMessenger {
		t.Errorf("Expected messenger publisher, got %s", cfg.Publisher)
	}
	if cfg.GraphToken != "page-token" {
		t.Errorf("Expected token from env file, got %q", cfg.GraphToken)
	}
	if len(cfg.Recipients) != 2 || cfg.Recipients[0] != "111:Rada" || cfg.Recipients[1] != "222" {
		t.Errorf("Unexpected recipients: %v", cfg.Recipients)
	}
	if cfg.Retention != 48*time.Hour {
		t.Errorf("Expected 48h retention, got %s", cfg.Retention)
	}
}

func TestLoadMissingEnvFileIsFine(t *testing.T) {
	clearEnv(t)

	if _, err := LoadArgs(filepath.Join(t.TempDir(), "absent.env"), nil); err != nil {
		t.Errorf("Expected no error for missing env file, got: %v", err)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"messenger without token", []string{"--publisher", "messenger", "--recipients", "1"}},
		{"messenger without recipients", []string{"--publisher", "messenger", "--graph-token", "x"}},
		{"inverted delays", []string{"--min-delay", "5s", "--max-delay", "1s"}},
		{"zero retention", []string{"--retention", "0s"}},
		{"unknown publisher", []string{"--publisher", "email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if _, err := LoadArgs("", tt.args); err == nil {
				t.Errorf("Expected error for %v", tt.args)
			}
		})
	}
}

func TestApplyTimezone(t *testing.T) {
	original := time.Local
	t.Cleanup(func() { time.Local = original })

	cfg := &Cfg{Timezone: "Europe/Warsaw"}
	if err := cfg.ApplyTimezone(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if time.Local.String() != "Europe/Warsaw" {
		t.Errorf("Expected Europe/Warsaw, got %s", time.Local)
	}

	if err := (&Cfg{Timezone: "Mars/Olympus"}).ApplyTimezone(); err == nil {
		t.Error("Expected error for invalid timezone")
	}
}
