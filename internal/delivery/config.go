package delivery

import (
	"pdfcourier/internal/browser"
	"pdfcourier/internal/config"
	"time"
)

// Selectors locate the UI elements the session drives.
type Selectors struct {
	SearchBox  browser.Selector
	TargetTag  string // tag of the rendered destination entry (default: div)
	TargetAttr string // attribute holding the exact destination name (default: title)
	MessageBox browser.Selector
	Attach     browser.Selector
	FileInput  browser.Selector
	// Preview signals that an attachment is rendered and ready to send. When
	// zero, the session falls back to waiting Config.AttachSettle.
	Preview browser.Selector
	Send    browser.Selector
}

// Target returns the exact-match selector for the destination name.
func (s Selectors) Target(name string) browser.Selector {
	return browser.CSSAttrEquals(s.TargetTag, s.TargetAttr, name)
}

// DefaultSelectors matches the web messaging client's current markup.
func DefaultSelectors() Selectors {
	return Selectors{
		SearchBox:  browser.CSS(`div[title="Search input textbox"]`),
		TargetTag:  "div",
		TargetAttr: "title",
		MessageBox: browser.CSS(`div[title="Type a message"]`),
		Attach:     browser.CSS(`div[title="Attach"]`),
		FileInput:  browser.XPath(`//input[@accept="*"]`),
		Preview:    browser.CSS(`span[data-icon="send"]`),
		Send:       browser.CSS(`span[data-icon="send"]`),
	}
}

// Config holds configuration for a delivery session.
type Config struct {
	URL             string
	DestinationName string
	Announcement    string // sent once per session before attachments; empty disables it
	Selectors       Selectors

	ConnectTimeout time.Duration // wait for the client to become usable (default: 2m)
	LocateTimeout  time.Duration // bound on each element lookup (default: 30s)
	PreviewTimeout time.Duration // bound on attachment preview readiness (default: 15s)
	PreviewPolls   int           // consecutive sightings that make a preview stable (default: 2)
	AttachSettle   time.Duration // fixed wait used only without a preview selector (default: 3s)
	SendSettle     time.Duration // wait for a message to register after sending (default: 2s)
}

// LoadConfigFromEnv loads delivery configuration from environment variables.
func LoadConfigFromEnv(destination, announcement string) Config {
	return Config{
		URL:             config.GetEnv("DELIVERY_URL", "https://web.whatsapp.com"),
		DestinationName: destination,
		Announcement:    announcement,
		ConnectTimeout:  config.GetDurationEnv("CONNECT_TIMEOUT", 2*time.Minute),
		LocateTimeout:   config.GetDurationEnv("LOCATE_TIMEOUT", 30*time.Second),
		PreviewTimeout:  config.GetDurationEnv("PREVIEW_TIMEOUT", 15*time.Second),
		AttachSettle:    config.GetDurationEnv("ATTACH_SETTLE", 3*time.Second),
		SendSettle:      config.GetDurationEnv("SEND_SETTLE", 2*time.Second),
	}
}

// withDefaults fills in zero values with defaults.
func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = "https://web.whatsapp.com"
	}
	if c.Selectors == (Selectors{}) {
		c.Selectors = DefaultSelectors()
	}
	if c.Selectors.TargetTag == "" {
		c.Selectors.TargetTag = "div"
	}
	if c.Selectors.TargetAttr == "" {
		c.Selectors.TargetAttr = "title"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 2 * time.Minute
	}
	if c.LocateTimeout == 0 {
		c.LocateTimeout = 30 * time.Second
	}
	if c.PreviewTimeout == 0 {
		c.PreviewTimeout = 15 * time.Second
	}
	if c.PreviewPolls == 0 {
		c.PreviewPolls = 2
	}
	if c.AttachSettle == 0 {
		c.AttachSettle = 3 * time.Second
	}
	if c.SendSettle == 0 {
		c.SendSettle = 2 * time.Second
	}
	return c
}
