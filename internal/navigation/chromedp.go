package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"bojfx/pkg/contracts/domain"
)

// ChromedpTransport drives a local Chrome over the DevTools protocol. Each
// portal window is a page target with its own chromedp context.
type ChromedpTransport struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	tabs    map[WindowHandle]tab
	current context.Context

	elementTimeout time.Duration
	limiter        *rate.Limiter
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewChromedpTransport returns an unlaunched transport
func NewChromedpTransport() *ChromedpTransport {
	return &ChromedpTransport{tabs: make(map[WindowHandle]tab)}
}

// ChromedpFactory builds a fresh ChromedpTransport per session
func ChromedpFactory() Transport {
	return NewChromedpTransport()
}

// Launch starts Chrome and opens its first tab.
func (c *ChromedpTransport) Launch(ctx context.Context, cfg domain.DriverConfig) error {
	if c.browserCtx != nil {
		return errors.New("browser already launched")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(1280, 1024),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	// The browser outlives the launch call, so it hangs off Background and
	// is torn down by Quit.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	stop := context.AfterFunc(ctx, browserCancel)
	err := chromedp.Run(browserCtx)
	stop()
	if err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("start chrome: %w", err)
	}

	c.allocCancel = allocCancel
	c.browserCtx = browserCtx
	c.browserCancel = browserCancel
	c.current = browserCtx
	c.elementTimeout = cfg.ElementTimeout

	limit := rate.Inf
	if cfg.ActionInterval > 0 {
		limit = rate.Every(cfg.ActionInterval)
	}
	c.limiter = rate.NewLimiter(limit, 1)

	if id := chromedp.FromContext(browserCtx).Target; id != nil {
		c.tabs[WindowHandle(id.TargetID)] = tab{ctx: browserCtx, cancel: browserCancel}
	}
	return nil
}

func (c *ChromedpTransport) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *ChromedpTransport) Click(ctx context.Context, loc Locator) error {
	return c.query(ctx, loc, chromedp.Click(selector(loc), queryOption(loc.By), chromedp.NodeVisible))
}

func (c *ChromedpTransport) SendKeys(ctx context.Context, loc Locator, text string) error {
	sel, by := selector(loc), queryOption(loc.By)
	return c.query(ctx, loc, chromedp.Tasks{
		chromedp.WaitVisible(sel, by),
		chromedp.SetValue(sel, "", by),
		chromedp.SendKeys(sel, text, by),
	})
}

func (c *ChromedpTransport) Attribute(ctx context.Context, loc Locator, name string) (string, error) {
	var value string
	var ok bool
	if err := c.query(ctx, loc, chromedp.AttributeValue(selector(loc), name, &value, &ok, queryOption(loc.By))); err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%s has no %s attribute", loc, name)
	}
	return value, nil
}

func (c *ChromedpTransport) WindowHandles(ctx context.Context) ([]WindowHandle, error) {
	if c.browserCtx == nil {
		return nil, errors.New("browser not launched")
	}
	infos, err := chromedp.Targets(c.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	var handles []WindowHandle
	for _, info := range infos {
		if info.Type == "page" {
			handles = append(handles, WindowHandle(info.TargetID))
		}
	}
	return handles, nil
}

func (c *ChromedpTransport) CurrentWindow(ctx context.Context) (WindowHandle, error) {
	if c.current == nil {
		return "", errors.New("browser not launched")
	}
	t := chromedp.FromContext(c.current).Target
	if t == nil {
		return "", errors.New("no current target")
	}
	return WindowHandle(t.TargetID), nil
}

// SwitchTo attaches to the target once and reuses the tab context afterwards.
func (c *ChromedpTransport) SwitchTo(ctx context.Context, h WindowHandle) error {
	if c.browserCtx == nil {
		return errors.New("browser not launched")
	}
	if t, ok := c.tabs[h]; ok {
		c.current = t.ctx
		return nil
	}

	tabCtx, cancel := chromedp.NewContext(c.browserCtx, chromedp.WithTargetID(target.ID(h)))
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		cancel()
		return fmt.Errorf("attach to window %s: %w", h, err)
	}
	c.tabs[h] = tab{ctx: tabCtx, cancel: cancel}
	c.current = tabCtx
	return nil
}

// Quit closes every attached tab and the browser process.
func (c *ChromedpTransport) Quit() error {
	if c.browserCtx == nil {
		return nil
	}
	for h, t := range c.tabs {
		if t.ctx != c.browserCtx {
			t.cancel()
		}
		delete(c.tabs, h)
	}

	err := chromedp.Cancel(c.browserCtx)
	c.browserCancel()
	c.allocCancel()

	c.browserCtx = nil
	c.current = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close chrome: %w", err)
	}
	return nil
}

// run executes actions in the current window under the element timeout,
// paced by the action limiter. ctx cancellation aborts the action.
func (c *ChromedpTransport) run(ctx context.Context, actions ...chromedp.Action) error {
	if c.current == nil {
		return errors.New("browser not launched")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(c.current, c.elementTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (c *ChromedpTransport) query(ctx context.Context, loc Locator, action chromedp.Action) error {
	err := c.run(ctx, action)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s within %s", ErrElementNotFound, loc, c.elementTimeout)
	}
	return err
}

func selector(loc Locator) string {
	if loc.By == ByClass {
		return "." + loc.Value
	}
	return loc.Value
}

func queryOption(by Strategy) chromedp.QueryOption {
	switch by {
	case ByID:
		return chromedp.ByID
	case ByXPath:
		return chromedp.BySearch
	default:
		return chromedp.ByQuery
	}
}

var _ Transport = (*ChromedpTransport)(nil)
