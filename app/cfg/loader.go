package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

const (
	PublisherLog       = "log"
	PublisherMessenger = "messenger"
)

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DataDir    string        `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for the ledger, lock and history database"`
	LedgerFile string        `long:"ledger-file" env:"LEDGER_FILE" description:"Ledger path (default: <data-dir>/sent_posts.json)"`
	LockFile   string        `long:"lock-file" env:"LOCK_FILE" description:"Lock path (default: <data-dir>/locks/pipeline.lock)"`
	SourcesDir string        `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	DBPath     string        `long:"db-path" env:"DB_PATH" description:"History database path (default: <data-dir>/newsrelay.db)"`
	Retention  time.Duration `long:"retention" env:"RETENTION" default:"168h" description:"How long a published item is remembered"`

	// Publishing
	Publisher   string        `long:"publisher" env:"PUBLISHER" default:"log" choice:"log" choice:"messenger" description:"Where items are published"`
	GraphToken  string        `long:"graph-token" env:"GRAPH_TOKEN" description:"Page access token for the Messenger publisher"`
	GraphAPIURL string        `long:"graph-api-url" env:"GRAPH_API_URL" default:"https://graph.facebook.com/v18.0/me/messages" description:"Graph API Send endpoint"`
	Recipients  []string      `long:"recipients" env:"RECIPIENTS" env-delim:"," description:"Messenger recipients as id or id:name"`
	MinDelay    time.Duration `long:"min-delay" env:"MIN_DELAY" default:"1s" description:"Minimum pause between publications"`
	MaxDelay    time.Duration `long:"max-delay" env:"MAX_DELAY" default:"3s" description:"Maximum pause between publications"`

	// Inspection server
	Serve        bool   `long:"serve" env:"SERVE" description:"Run the read-only inspection server instead of a publishing run"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (compatible; newsrelay/1.0)" description:"User agent string for HTTP requests"`
	LogFile   string `long:"log-file" env:"LOG_FILE" description:"Also write logs to this file, rotated by size"`
	Timezone  string `long:"timezone" env:"TZ" default:"Europe/Warsaw" description:"Timezone for timestamps (e.g., UTC, Europe/Warsaw)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load reads .env (if present), then flags and environment.
func Load() (*Cfg, error) {
	return LoadArgs(".env", os.Args[1:])
}

// LoadArgs is Load with an explicit env file and argument list. It returns
// nil, nil when help was requested.
func LoadArgs(envFile string, args []string) (*Cfg, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DataDir:      raw.DataDir,
		LedgerFile:   cmp.Or(raw.LedgerFile, filepath.Join(raw.DataDir, "sent_posts.json")),
		LockFile:     cmp.Or(raw.LockFile, filepath.Join(raw.DataDir, "locks", "pipeline.lock")),
		SourcesDir:   raw.SourcesDir,
		DBPath:       cmp.Or(raw.DBPath, filepath.Join(raw.DataDir, "newsrelay.db")),
		Retention:    raw.Retention,
		Publisher:    raw.Publisher,
		GraphToken:   raw.GraphToken,
		GraphAPIURL:  raw.GraphAPIURL,
		Recipients:   raw.Recipients,
		MinDelay:     raw.MinDelay,
		MaxDelay:     raw.MaxDelay,
		Serve:        raw.Serve,
		Port:         raw.Port,
		APIAccessKey: raw.APIAccessKey,
		UserAgent:    raw.UserAgent,
		LogFile:      raw.LogFile,
		Timezone:     raw.Timezone,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func (c *Cfg) validate() error {
	if c.Retention <= 0 {
		return fmt.Errorf("retention must be positive, got %s", c.Retention)
	}
	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		return fmt.Errorf("invalid delay range %s..%s", c.MinDelay, c.MaxDelay)
	}
	if c.Publisher == PublisherMessenger && !c.Serve {
		if c.GraphToken == "" {
			return fmt.Errorf("messenger publisher requires --graph-token")
		}
		if len(c.Recipients) == 0 {
			return fmt.Errorf("messenger publisher requires --recipients")
		}
	}
	return nil
}

// ApplyTimezone sets time.Local from the configured zone.
func (c *Cfg) ApplyTimezone() error {
	if c.Timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return err
	}
	time.Local = loc
	return nil
}
