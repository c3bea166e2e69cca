package store

// Config holds configuration for the artifact store.
type Config struct {
	Dir       string // output directory (default: ./pdf)
	Extension string // artifact file extension, with dot (default: .pdf)
}

// withDefaults fills in zero values with defaults.
func (c Config) withDefaults() Config {
	if c.Dir == "" {
		c.Dir = "./pdf"
	}
	if c.Extension == "" {
		c.Extension = ".pdf"
	}
	return c
}
