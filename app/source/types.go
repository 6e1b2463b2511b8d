package source

const (
	TypeFeed = "feed"
	TypeHTML = "html"
)

type Config struct {
	Name        string    // Derived from filename (without .yml extension)
	Type        string    `yaml:"type"`
	URL         string    `yaml:"url"`
	DisplayName string    `yaml:"display_name"`
	IDPattern   string    `yaml:"id_pattern"`
	Settings    Settings  `yaml:"settings"`
	Selectors   Selectors `yaml:"selectors"`
	Filters     []Filter  `yaml:"filters"`
}

type Settings struct {
	Enabled        bool `yaml:"enabled"`
	Timeout        int  `yaml:"timeout"` // seconds
	MaxItems       int  `yaml:"max_items"`
	RecentOnly     bool `yaml:"recent_only"`
	RecentDays     int  `yaml:"recent_days"` // calendar days counted as recent, today included
	MinTextLength  int  `yaml:"min_text_length"`
	ExtractContent bool `yaml:"extract_content"` // fetch the article page for a lead
}

// Selectors are goquery selectors for html sources. Everything except Item is
// evaluated relative to the matched item element.
type Selectors struct {
	Item  string `yaml:"item"`
	Title string `yaml:"title"`
	Link  string `yaml:"link"`
	Text  string `yaml:"text"`
	Time  string `yaml:"time"`
	Image string `yaml:"image"`
}

type Filter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

func (c *Config) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// SourceError reports one source that could not be collected.
type SourceError struct {
	Source string
	Err    error
}

func (e SourceError) Error() string {
	return e.Source + ": " + e.Err.Error()
}

func (e SourceError) Unwrap() error {
	return e.Err
}
