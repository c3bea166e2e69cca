// Package browser isolates all coupling to the remote web UI behind a small
// capability interface: open a page, locate an element within a bounded wait,
// and act on it.
package browser

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrElementNotFound is returned when a locate does not find its element in time.
var ErrElementNotFound = errors.New("element not found")

// SelectorKind is the lookup language of a Selector.
type SelectorKind int

const (
	KindCSS SelectorKind = iota
	KindXPath
)

func (k SelectorKind) String() string {
	switch k {
	case KindCSS:
		return "css"
	case KindXPath:
		return "xpath"
	default:
		return "unknown"
	}
}

// Selector describes an element by a descriptive attribute query.
type Selector struct {
	Kind  SelectorKind
	Value string
}

// CSS returns a CSS selector.
func CSS(value string) Selector { return Selector{Kind: KindCSS, Value: value} }

// XPath returns an XPath selector.
func XPath(value string) Selector { return Selector{Kind: KindXPath, Value: value} }

// IsZero reports whether the selector is unset.
func (s Selector) IsZero() bool { return s.Value == "" }

func (s Selector) String() string {
	return s.Kind.String() + ":" + s.Value
}

// CSSAttrEquals builds `tag[attr="value"]` with value escaped for a CSS string.
func CSSAttrEquals(tag, attr, value string) Selector {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return CSS(tag + "[" + attr + `="` + r.Replace(value) + `"]`)
}

// Surface is a rendered UI that content loads into asynchronously.
type Surface interface {
	// Open navigates to url. It does not imply the page is ready for use.
	Open(ctx context.Context, url string) error
	// Locate polls for the element until it is present or timeout elapses,
	// in which case the error wraps ErrElementNotFound.
	Locate(ctx context.Context, sel Selector, timeout time.Duration) (Element, error)
	// Present reports whether the element is present right now, without waiting.
	Present(ctx context.Context, sel Selector) (bool, error)
	// Close releases the surface.
	Close() error
}

// Element is a handle to a located element.
type Element interface {
	Click(ctx context.Context) error
	Type(ctx context.Context, text string) error
	// Submit sends the Enter key to the element.
	Submit(ctx context.Context) error
	// SetFiles submits local file paths to a file-selection input.
	SetFiles(ctx context.Context, paths ...string) error
}
