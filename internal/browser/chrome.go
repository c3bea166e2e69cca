package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// presentTimeout bounds a single non-waiting presence query.
const presentTimeout = 2 * time.Second

// Chrome is a Surface backed by a Chrome tab driven through the DevTools protocol.
// Operations are serialized; the tab is a single shared resource.
type Chrome struct {
	cfg         Config
	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	logger      *slog.Logger
	mu          sync.Mutex
	closed      bool
	started     bool

	// start allocates the browser. It must run on tabCtx: chromedp binds the
	// browser's lifetime to the context of the first Run.
	start func(ctx context.Context) error
}

// NewChrome prepares a browser. Nothing is launched until Open is called.
// With a RemoteURL the surface attaches to that browser instead of starting one.
func NewChrome(cfg Config) *Chrome {
	cfg = cfg.withDefaults()
	logger := slog.With("component", "browser")

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserDataDir(cfg.UserDataDir),
			chromedp.Flag("headless", cfg.Headless),
			chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Warn(fmt.Sprintf(format, args...))
		}),
	)

	return &Chrome{
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		logger:      logger,
		start: func(ctx context.Context) error {
			return chromedp.Run(ctx)
		},
	}
}

// Open navigates the tab to url, launching the browser on first use.
func (c *Chrome) Open(ctx context.Context, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("Opening page", "url", url, "remote", c.cfg.RemoteURL != "", "headless", c.cfg.Headless)
	if err := c.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

// Locate waits up to timeout for the first element matching sel to be present.
func (c *Chrome) Locate(ctx context.Context, sel Selector, timeout time.Duration) (Element, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var nodes []*cdp.Node
	err := c.run(ctx, timeout, chromedp.Nodes(sel.Value, &nodes, queryOption(sel), chromedp.NodeReady))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%s after %s: %w", sel, timeout, ErrElementNotFound)
		}
		return nil, fmt.Errorf("locate %s: %w", sel, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s: %w", sel, ErrElementNotFound)
	}
	return &chromeElement{chrome: c, node: nodes[0], sel: sel}, nil
}

// Present queries sel once without waiting for it to appear.
func (c *Chrome) Present(ctx context.Context, sel Selector) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var nodes []*cdp.Node
	err := c.run(ctx, presentTimeout, chromedp.Nodes(sel.Value, &nodes, queryOption(sel), chromedp.AtLeast(0)))
	if err != nil {
		return false, fmt.Errorf("query %s: %w", sel, err)
	}
	return len(nodes) > 0, nil
}

// Close closes the tab and, for a locally launched browser, the browser itself.
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Info("Closing browser")
	c.tabCancel()
	c.allocCancel()
	return nil
}

// run executes actions on the tab, bounded by timeout (when positive) and
// aborted when ctx is cancelled. The tab itself outlives the call.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if c.closed {
		return errors.New("browser closed")
	}
	if !c.started {
		if err := c.start(c.tabCtx); err != nil {
			return fmt.Errorf("start browser: %w", err)
		}
		c.started = true
		c.logger.Info("Browser started")
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(c.tabCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(c.tabCtx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func queryOption(sel Selector) chromedp.QueryOption {
	if sel.Kind == KindXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

type chromeElement struct {
	chrome *Chrome
	node   *cdp.Node
	sel    Selector
}

func (e *chromeElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromeElement) do(ctx context.Context, what string, action chromedp.Action) error {
	e.chrome.mu.Lock()
	defer e.chrome.mu.Unlock()

	if err := e.chrome.run(ctx, e.chrome.cfg.ActionTimeout, action); err != nil {
		return fmt.Errorf("%s %s: %w", what, e.sel, err)
	}
	return nil
}

func (e *chromeElement) Click(ctx context.Context) error {
	return e.do(ctx, "click", chromedp.MouseClickNode(e.node))
}

func (e *chromeElement) Type(ctx context.Context, text string) error {
	return e.do(ctx, "type into", chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID))
}

func (e *chromeElement) Submit(ctx context.Context) error {
	return e.do(ctx, "submit", chromedp.SendKeys(e.ids(), kb.Enter, chromedp.ByNodeID))
}

func (e *chromeElement) SetFiles(ctx context.Context, paths ...string) error {
	return e.do(ctx, "set files on", chromedp.SetUploadFiles(e.ids(), paths, chromedp.ByNodeID))
}
