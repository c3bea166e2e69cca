package composer

// DefaultDateLayout renders dates like "Thu Oct 15 2026", independent of locale.
const DefaultDateLayout = "Mon Jan 02 2006"

// Config holds configuration for the composer.
type Config struct {
	AuthorLabel string // name printed on the cover and stamped on every image page
	DateLayout  string // time layout for the cover date (default: DefaultDateLayout)
}

// withDefaults fills in zero values with defaults.
func (c Config) withDefaults() Config {
	if c.DateLayout == "" {
		c.DateLayout = DefaultDateLayout
	}
	return c
}
