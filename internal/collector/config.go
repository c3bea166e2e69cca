package collector

import (
	"pdfcourier/internal/config"
	"slices"
)

// DefaultDenyList holds OS-generated entries that are never subjects or images.
var DefaultDenyList = []string{".DS_Store", "Thumbs.db", "desktop.ini", "__MACOSX"}

// Config holds configuration for the collector.
type Config struct {
	Root     string   // source tree root (default: ./subjects)
	DenyList []string // exact names to skip (default: DefaultDenyList)
}

// LoadConfigFromEnv loads the deny-list from the environment; root comes from
// the service configuration.
func LoadConfigFromEnv(root string) Config {
	return Config{
		Root:     root,
		DenyList: config.GetListEnv("SUBJECT_DENYLIST", DefaultDenyList),
	}.withDefaults()
}

// withDefaults fills in zero values with defaults.
func (c Config) withDefaults() Config {
	if c.Root == "" {
		c.Root = "./subjects"
	}
	if len(c.DenyList) == 0 {
		c.DenyList = slices.Clone(DefaultDenyList)
	}
	return c
}
