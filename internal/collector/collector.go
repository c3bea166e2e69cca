// Package collector enumerates subject folders and the raster images inside them.
package collector

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"pdfcourier/internal/apperrors"
	"strings"
)

// Encoding is the declared raster encoding of a source image.
type Encoding string

const (
	EncodingUnknown Encoding = ""
	EncodingPNG     Encoding = "png"
	EncodingJPEG    Encoding = "jpeg"
)

// EncodingFromName maps a file name to its declared encoding by extension.
func EncodingFromName(name string) Encoding {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return EncodingPNG
	case ".jpg", ".jpeg":
		return EncodingJPEG
	default:
		return EncodingUnknown
	}
}

// SourceImage is one file of a subject folder, read eagerly.
type SourceImage struct {
	Name     string
	Path     string
	Encoding Encoding
	Data     []byte
}

// Collector reads the source tree: one directory per subject under Root.
type Collector struct {
	root   string
	deny   map[string]struct{}
	logger *slog.Logger
}

// New creates a collector for the configured source tree.
func New(cfg Config) *Collector {
	cfg = cfg.withDefaults()

	deny := make(map[string]struct{}, len(cfg.DenyList))
	for _, name := range cfg.DenyList {
		deny[name] = struct{}{}
	}

	return &Collector{
		root:   cfg.Root,
		deny:   deny,
		logger: slog.With("component", "collector"),
	}
}

// ListSubjects returns the subject identifiers found under the root.
// Plain files, hidden directories and deny-listed entries are ignored.
func (c *Collector) ListSubjects() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, apperrors.Collection("", err)
	}

	var subjects []string
	for _, entry := range entries {
		name := entry.Name()
		if c.denied(name) {
			continue
		}
		if !entry.IsDir() {
			c.logger.Debug("Ignoring non-directory entry", "name", name)
			continue
		}
		if strings.HasPrefix(name, ".") {
			c.logger.Debug("Ignoring hidden directory", "name", name)
			continue
		}
		subjects = append(subjects, name)
	}
	return subjects, nil
}

// ListImages returns the files of a subject in directory enumeration order.
// Files are returned regardless of extension; rejecting unknown encodings is
// the composer's decision.
func (c *Collector) ListImages(subject string) ([]SourceImage, error) {
	dir := filepath.Join(c.root, subject)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.Collection(subject, err)
	}

	images := make([]SourceImage, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if c.denied(name) || entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Collection(subject, fmt.Errorf("read %s: %w", name, err))
		}

		images = append(images, SourceImage{
			Name:     name,
			Path:     path,
			Encoding: EncodingFromName(name),
			Data:     data,
		})
	}

	c.logger.Debug("Listed images", "subject", subject, "count", len(images))
	return images, nil
}

func (c *Collector) denied(name string) bool {
	_, ok := c.deny[name]
	return ok
}
