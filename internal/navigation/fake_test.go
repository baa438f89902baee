package navigation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"bojfx/internal/config"
	"bojfx/pkg/contracts/domain"
)

// pendingWindow becomes visible after the given number of handle listings
type pendingWindow struct {
	handle WindowHandle
	after  int
}

// fakeTransport is a scripted browser. Clicking a locator named in opens
// schedules the listed windows.
type fakeTransport struct {
	calls   []string
	handles []WindowHandle
	current WindowHandle
	pending []pendingWindow

	opens   map[string][]pendingWindow
	fail    map[string]error
	href    string
	listErr error

	quits   int
	quitErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		opens: map[string][]pendingWindow{
			"extract":  {{handle: "results"}},
			"download": {{handle: "download"}},
		},
		fail: map[string]error{},
		href: "../html/nme_R020MM.csv",
	}
}

func (f *fakeTransport) record(call string) error {
	f.calls = append(f.calls, call)
	return f.fail[call]
}

func (f *fakeTransport) Launch(ctx context.Context, cfg domain.DriverConfig) error {
	if err := f.record("launch"); err != nil {
		return err
	}
	f.handles = []WindowHandle{"main"}
	f.current = "main"
	return nil
}

func (f *fakeTransport) Navigate(ctx context.Context, url string) error {
	return f.record("navigate " + url)
}

func (f *fakeTransport) Click(ctx context.Context, loc Locator) error {
	if err := f.record("click " + loc.Name); err != nil {
		return err
	}
	f.pending = append(f.pending, f.opens[loc.Name]...)
	return nil
}

func (f *fakeTransport) SendKeys(ctx context.Context, loc Locator, text string) error {
	return f.record(fmt.Sprintf("keys %s=%s", loc.Name, text))
}

func (f *fakeTransport) Attribute(ctx context.Context, loc Locator, name string) (string, error) {
	if err := f.record(fmt.Sprintf("attr %s.%s", loc.Name, name)); err != nil {
		return "", err
	}
	return f.href, nil
}

func (f *fakeTransport) WindowHandles(ctx context.Context) ([]WindowHandle, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var still []pendingWindow
	for _, p := range f.pending {
		if p.after <= 0 {
			f.handles = append(f.handles, p.handle)
			continue
		}
		p.after--
		still = append(still, p)
	}
	f.pending = still
	return append([]WindowHandle(nil), f.handles...), nil
}

func (f *fakeTransport) CurrentWindow(ctx context.Context) (WindowHandle, error) {
	return f.current, nil
}

func (f *fakeTransport) SwitchTo(ctx context.Context, h WindowHandle) error {
	if err := f.record("switch " + string(h)); err != nil {
		return err
	}
	f.current = h
	return nil
}

func (f *fakeTransport) Quit() error {
	f.quits++
	return f.quitErr
}

// fakeClock advances only when slept on
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
	return nil
}

func testDriver() domain.DriverConfig {
	return domain.DriverConfig{
		Headless:       true,
		PortalURL:      config.PortalURL,
		ElementTimeout: 5 * time.Second,
		WindowTimeout:  time.Second,
		PollInterval:   250 * time.Millisecond,
	}
}

func testTimingRetry() config.RetryConfig {
	return config.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     4 * time.Second,
		Multiplier:   2,
	}
}

func newTestSession(f *fakeTransport) (*Session, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC)}
	s := NewSession(f, testDriver(),
		WithTimingRetry(testTimingRetry()),
		WithClock(clock.now, clock.sleep),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return s, clock
}
