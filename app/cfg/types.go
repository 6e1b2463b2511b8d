package cfg

import (
	"time"
)

type Cfg struct {
	// Storage
	DataDir    string
	LedgerFile string
	LockFile   string
	SourcesDir string
	DBPath     string
	Retention  time.Duration

	// Publishing
	Publisher   string
	GraphToken  string
	GraphAPIURL string
	Recipients  []string
	MinDelay    time.Duration
	MaxDelay    time.Duration

	// Inspection server
	Serve        bool
	Port         string
	APIAccessKey string

	// Application metadata
	UserAgent string
	LogFile   string
	Timezone  string
	Debug     bool
	Version   string
}
