package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bgnews/newsrelay/app/fingerprint"
	"github.com/bgnews/newsrelay/app/post"
)

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "policja", `
type: html
url: "https://walbrzych.policja.gov.pl/dba/aktualnosci/bieza"
display_name: "Policja"
id_pattern: '/(\d+),'

settings:
  enabled: true
  max_items: 25
  timeout: 15
  recent_only: true
  min_text_length: 20

selectors:
  item: "article"
  title: "h2 a"
  link: "h2 a"
  text: "p"

filters:
  - field: "text"
    includes:
      - "bogusz"
    excludes:
      - "spam"
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 config, got %d", configCache.GetConfigCount())
	}

	config, err := configCache.GetConfig("policja")
	if err != nil {
		t.Fatal(err)
	}

	if config.Name != "policja" {
		t.Errorf("Expected name 'policja', got '%s'", config.Name)
	}
	if config.Type != TypeHTML {
		t.Errorf("Expected type html, got '%s'", config.Type)
	}
	if config.Label() != "Policja" {
		t.Errorf("Expected label 'Policja', got '%s'", config.Label())
	}
	if config.Settings.MaxItems != 25 {
		t.Errorf("Expected max items 25, got %d", config.Settings.MaxItems)
	}
	if !config.Settings.RecentOnly {
		t.Error("Expected recent_only to be true")
	}
	if config.Selectors.Item != "article" {
		t.Errorf("Expected item selector 'article', got '%s'", config.Selectors.Item)
	}
	if len(config.Filters) != 1 {
		t.Errorf("Expected 1 filter, got %d", len(config.Filters))
	}
}

func TestConfigCacheLoadConfigWithDefaults(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "minimal", `url: "https://example.com/feed.xml"`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	config, err := configCache.GetConfig("minimal")
	if err != nil {
		t.Fatal(err)
	}

	if config.Type != TypeFeed {
		t.Errorf("Expected default type feed, got '%s'", config.Type)
	}
	if !config.Settings.Enabled {
		t.Error("Expected sources to be enabled by default")
	}
	if config.Settings.MaxItems != 50 {
		t.Errorf("Expected default max items 50, got %d", config.Settings.MaxItems)
	}
	if config.Settings.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got %d", config.Settings.Timeout)
	}
	if config.Label() != "minimal" {
		t.Errorf("Expected label to fall back to name, got '%s'", config.Label())
	}
}

func TestConfigCacheInvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			name:    "missing url",
			content: "settings:\n  enabled: true\n",
			errPart: "source URL is required",
		},
		{
			name:    "unknown type",
			content: "type: selenium\nurl: https://a\n",
			errPart: "unknown source type",
		},
		{
			name:    "html without item selector",
			content: "type: html\nurl: https://a\n",
			errPart: "item selector",
		},
		{
			name:    "id pattern without group",
			content: "url: https://a\nid_pattern: '/\\d+'\n",
			errPart: "capture group",
		},
		{
			name:    "invalid filter field",
			content: "url: https://a\nfilters:\n  - field: authors\n    includes: [x]\n",
			errPart: "invalid filter field",
		},
		{
			name:    "empty filter",
			content: "url: https://a\nfilters:\n  - field: text\n",
			errPart: "at least one include or exclude",
		},
		{
			name:    "negative timeout",
			content: "url: https://a\nsettings:\n  timeout: -1\n",
			errPart: "timeout must be non-negative",
		},
		{
			name:    "broken yaml",
			content: "url: [unclosed\n",
			errPart: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeSource(t, tempDir, "bad", tt.content)

			err := NewConfigCache(tempDir).Run()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("Expected error containing %q, got: %v", tt.errPart, err)
			}
		})
	}
}

func TestConfigCacheMissingDirectory(t *testing.T) {
	configCache := NewConfigCache(filepath.Join(t.TempDir(), "absent"))
	if err := configCache.Run(); err != nil {
		t.Errorf("Expected no error for missing directory, got: %v", err)
	}
	if configCache.GetConfigCount() != 0 {
		t.Errorf("Expected 0 configs, got %d", configCache.GetConfigCount())
	}
}

func TestConfigCacheEnabledConfigsSortedByName(t *testing.T) {
	tempDir := t.TempDir()
	writeSource(t, tempDir, "tvwalbrzych", "url: https://c\n")
	writeSource(t, tempDir, "dziennik", "url: https://a\n")
	writeSource(t, tempDir, "disabled", "url: https://b\nsettings:\n  enabled: false\n")

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	enabled := configCache.GetEnabledConfigs()
	if len(enabled) != 2 {
		t.Fatalf("Expected 2 enabled configs, got %d", len(enabled))
	}
	if enabled[0].Name != "dziennik" || enabled[1].Name != "tvwalbrzych" {
		t.Errorf("Expected [dziennik tvwalbrzych], got [%s %s]", enabled[0].Name, enabled[1].Name)
	}

	if _, err := configCache.GetConfig("nonexistent"); err == nil {
		t.Error("Expected error for unknown config")
	}
}

func TestConfigCacheRegisterIDPatterns(t *testing.T) {
	tempDir := t.TempDir()
	writeSource(t, tempDir, "gmina", "url: https://boguszow-gorce.pl\nid_pattern: '/aktualnosci/(\\d+)'\n")

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	extractors := fingerprint.NewExtractors()
	if err := configCache.RegisterIDPatterns(extractors); err != nil {
		t.Fatal(err)
	}

	gen := fingerprint.NewGenerator(extractors)
	got := gen.Fingerprint(post.Item{SourceTag: "gmina", CanonicalURL: "https://boguszow-gorce.pl/aktualnosci/512/dni-miasta"})
	if got != "gmina_512" {
		t.Errorf("Expected 'gmina_512', got %q", got)
	}
}
