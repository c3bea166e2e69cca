package testutil

import (
	"context"
	"fmt"
	"pdfcourier/internal/browser"
	"slices"
	"strings"
	"sync"
	"time"
)

// FakeSurface is a scripted browser.Surface. Every element is present unless
// hidden; hidden elements fail Locate immediately with browser.ErrElementNotFound.
// All actions are recorded in order.
type FakeSurface struct {
	mu       sync.Mutex
	hidden   map[string][]int // selector value -> 1-based locate calls that fail; empty means all
	calls    map[string]int
	actions  []string
	uploads  []string
	openErr  error
	opened   int
	closed   int
	onUpload func(paths []string)
	onAction func(action string)
}

// NewFakeSurface returns a surface on which every element is present.
func NewFakeSurface() *FakeSurface {
	return &FakeSurface{
		hidden: make(map[string][]int),
		calls:  make(map[string]int),
	}
}

// Hide makes locating sel fail on the given 1-based call numbers, or on every
// call when none are given.
func (f *FakeSurface) Hide(sel browser.Selector, calls ...int) *FakeSurface {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidden[sel.Value] = calls
	return f
}

// FailOpen makes Open return err.
func (f *FakeSurface) FailOpen(err error) *FakeSurface {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr = err
	return f
}

// OnUpload registers a callback run on every SetFiles.
func (f *FakeSurface) OnUpload(fn func(paths []string)) *FakeSurface {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onUpload = fn
	return f
}

// OnAction registers a callback run after every element action is recorded.
func (f *FakeSurface) OnAction(fn func(action string)) *FakeSurface {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onAction = fn
	return f
}

func (f *FakeSurface) Open(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
	f.actions = append(f.actions, "open "+url)
	return f.openErr
}

func (f *FakeSurface) Locate(ctx context.Context, sel browser.Selector, timeout time.Duration) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[sel.Value]++
	if f.isHidden(sel.Value, f.calls[sel.Value]) {
		f.actions = append(f.actions, "miss "+sel.Value)
		return nil, fmt.Errorf("%s after %s: %w", sel, timeout, browser.ErrElementNotFound)
	}
	return &fakeElement{f: f, sel: sel}, nil
}

func (f *FakeSurface) Present(ctx context.Context, sel browser.Selector) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	calls, ok := f.hidden[sel.Value]
	return !ok || len(calls) > 0, nil
}

func (f *FakeSurface) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	f.actions = append(f.actions, "close")
	return nil
}

func (f *FakeSurface) isHidden(value string, call int) bool {
	calls, ok := f.hidden[value]
	if !ok {
		return false
	}
	return len(calls) == 0 || slices.Contains(calls, call)
}

// Actions returns the recorded actions.
func (f *FakeSurface) Actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.actions)
}

// Uploads returns every path submitted to a file input, in order.
func (f *FakeSurface) Uploads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.uploads)
}

// Typed returns the text typed into elements matching sel.
func (f *FakeSurface) Typed(sel browser.Selector) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := "type " + sel.Value + " "
	var out []string
	for _, a := range f.actions {
		if text, ok := strings.CutPrefix(a, prefix); ok {
			out = append(out, text)
		}
	}
	return out
}

// Opened returns how many times Open was called.
func (f *FakeSurface) Opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

// Closed returns how many times Close was called.
func (f *FakeSurface) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeElement struct {
	f   *FakeSurface
	sel browser.Selector
}

func (e *fakeElement) record(action string) error {
	e.f.mu.Lock()
	e.f.actions = append(e.f.actions, action)
	fn := e.f.onAction
	e.f.mu.Unlock()
	if fn != nil {
		fn(action)
	}
	return nil
}

func (e *fakeElement) Click(ctx context.Context) error {
	return e.record("click " + e.sel.Value)
}

func (e *fakeElement) Type(ctx context.Context, text string) error {
	return e.record("type " + e.sel.Value + " " + text)
}

func (e *fakeElement) Submit(ctx context.Context) error {
	return e.record("submit " + e.sel.Value)
}

func (e *fakeElement) SetFiles(ctx context.Context, paths ...string) error {
	e.f.mu.Lock()
	e.f.uploads = append(e.f.uploads, paths...)
	e.f.actions = append(e.f.actions, "files "+e.sel.Value+" "+strings.Join(paths, ","))
	fn, onAction := e.f.onUpload, e.f.onAction
	e.f.mu.Unlock()
	if fn != nil {
		fn(paths)
	}
	if onAction != nil {
		onAction("files " + e.sel.Value + " " + strings.Join(paths, ","))
	}
	return nil
}
