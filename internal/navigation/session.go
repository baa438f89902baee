package navigation

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"bojfx/internal/config"
	"bojfx/internal/errors"
	"bojfx/internal/infrastructure"
	"bojfx/internal/retry"
	"bojfx/pkg/contracts/domain"
)

// ErrOutOfOrder is wrapped by every error returned for a call made in the
// wrong state. Such calls never reach the browser.
var ErrOutOfOrder = stderrors.New("navigation step out of order")

// Session drives one browser through the portal sequence
//
//	Start → CategorySelected → ItemsSelected → CriteriaAdded → DateRangeSet →
//	ExtractionSubmitted → ResultWindowActive → DownloadLinkObtained → Closed
//
// Every step is valid only from its predecessor. A failed step leaves the
// session in StateFailed where only Close is accepted. A Session owns its
// Transport and must not be shared between goroutines.
type Session struct {
	transport Transport
	driver    domain.DriverConfig
	contract  PageContract
	retrier   *retry.Retrier
	logger    *slog.Logger
	metrics   *infrastructure.ExtractionMetrics

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	state      State
	failedStep string
	windows    map[WindowRole]WindowHandle
	known      map[WindowHandle]struct{}
	locator    domain.DownloadLocator

	closed   bool
	closeErr error
}

// Option configures a Session
type Option func(*sessionOptions)

type sessionOptions struct {
	contract    PageContract
	timingRetry config.RetryConfig
	logger      *slog.Logger
	now         func() time.Time
	sleep       func(context.Context, time.Duration) error
}

// WithPageContract overrides the portal locators
func WithPageContract(c PageContract) Option {
	return func(o *sessionOptions) { o.contract = c }
}

// WithTimingRetry sets the backoff used while waiting for windows
func WithTimingRetry(cfg config.RetryConfig) Option {
	return func(o *sessionOptions) { o.timingRetry = cfg }
}

// WithLogger sets the session logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *sessionOptions) { o.logger = logger }
}

// WithClock replaces the time source and the sleep used for polling and
// backoff.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(o *sessionOptions) {
		o.now = now
		o.sleep = sleep
	}
}

// NewSession prepares a session on t without touching the browser. Call
// Open to launch it and Close on every exit path.
func NewSession(t Transport, driver domain.DriverConfig, opts ...Option) *Session {
	o := sessionOptions{
		contract:    DefaultPageContract(),
		timingRetry: config.Default().TimingRetry,
		logger:      infrastructure.GetLogger(),
		now:         time.Now,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := infrastructure.WithComponent(o.logger, "navigation")
	return &Session{
		transport: t,
		driver:    driver,
		contract:  o.contract,
		retrier: retry.New(o.timingRetry,
			retry.WithSleeper(o.sleep),
			retry.WithLogger(logger)),
		logger:  logger,
		metrics: infrastructure.Metrics(),
		now:     o.now,
		sleep:   o.sleep,
		state:   StateNew,
		windows: make(map[WindowRole]WindowHandle),
		known:   make(map[WindowHandle]struct{}),
	}
}

// State returns the current state
func (s *Session) State() State {
	return s.state
}

// Locator returns the resolved download locator once obtained
func (s *Session) Locator() (domain.DownloadLocator, bool) {
	return s.locator, s.state == StateDownloadLinkObtained || (s.state == StateClosed && s.locator.URL != "")
}

// Open launches the browser and loads the portal entry page.
func (s *Session) Open(ctx context.Context) error {
	return s.step(ctx, "open", StateNew, StateStart, func(ctx context.Context) error {
		if err := s.transport.Launch(ctx, s.driver); err != nil {
			return browserError(ctx, "open", "failed to launch browser", err)
		}
		if err := s.transport.Navigate(ctx, s.driver.PortalURL); err != nil {
			return browserError(ctx, "open", "failed to load portal", err).
				WithContext("url", s.driver.PortalURL)
		}
		main, err := s.transport.CurrentWindow(ctx)
		if err != nil {
			return browserError(ctx, "open", "failed to read main window", err)
		}
		if err := s.rememberWindows(ctx, "open"); err != nil {
			return err
		}
		s.windows[RoleMain] = main
		return nil
	})
}

// SelectCategory opens the data item panel of the foreign exchange menu.
func (s *Session) SelectCategory(ctx context.Context) error {
	return s.step(ctx, "select_category", StateStart, StateCategorySelected, func(ctx context.Context) error {
		if err := s.click(ctx, "select_category", s.contract.Category); err != nil {
			return err
		}
		return s.click(ctx, "select_category", s.contract.Expand)
	})
}

// SelectDataItems ticks the checkbox of every data item in the currency's
// group, in group order.
func (s *Session) SelectDataItems(ctx context.Context, currency domain.Currency) error {
	labels := config.DataItemLabels(currency.String())
	if labels == nil {
		return errors.NewValidationError(fmt.Sprintf("unknown currency group %q", currency), nil)
	}

	return s.step(ctx, "select_data_items", StateCategorySelected, StateItemsSelected, func(ctx context.Context) error {
		for i, label := range labels {
			pos, err := PagePosition(currency, i)
			if err != nil {
				return errors.NewNavigationError("select_data_items", "no page position for data item", err).
					WithContext("label", label)
			}
			if err := s.click(ctx, "select_data_items", s.contract.Checkbox(pos)); err != nil {
				return err
			}
			s.logger.DebugContext(ctx, "data_item_selected",
				slog.String("label", label),
				slog.Int("position", pos))
		}
		return nil
	})
}

// AddToExtractionCriteria confirms the selected data items.
func (s *Session) AddToExtractionCriteria(ctx context.Context) error {
	return s.step(ctx, "add_criteria", StateItemsSelected, StateCriteriaAdded, func(ctx context.Context) error {
		return s.click(ctx, "add_criteria", s.contract.AddCriteria)
	})
}

// SetDateRange enters the year bounds.
func (s *Session) SetDateRange(ctx context.Context, fromYear, toYear int) error {
	if fromYear > toYear {
		return errors.NewValidationError(fmt.Sprintf("from year %d is after to year %d", fromYear, toYear), nil)
	}

	return s.step(ctx, "set_date_range", StateCriteriaAdded, StateDateRangeSet, func(ctx context.Context) error {
		if err := s.sendKeys(ctx, "set_date_range", s.contract.FromYear, strconv.Itoa(fromYear)); err != nil {
			return err
		}
		return s.sendKeys(ctx, "set_date_range", s.contract.ToYear, strconv.Itoa(toYear))
	})
}

// SubmitExtraction triggers the extraction and waits for the results window.
func (s *Session) SubmitExtraction(ctx context.Context) (Window, error) {
	var w Window
	err := s.step(ctx, "submit_extraction", StateDateRangeSet, StateExtractionSubmitted, func(ctx context.Context) error {
		if err := s.click(ctx, "submit_extraction", s.contract.Extract); err != nil {
			return err
		}
		h, err := s.awaitNewWindow(ctx, "submit_extraction", RoleResults)
		if err != nil {
			return err
		}
		w = Window{Role: RoleResults, Handle: h}
		return nil
	})
	return w, err
}

// RequestDownload switches to the results window, asks for the CSV and reads
// its location from the window that opens.
func (s *Session) RequestDownload(ctx context.Context, results Window) (domain.DownloadLocator, error) {
	err := s.step(ctx, "activate_result_window", StateExtractionSubmitted, StateResultWindowActive, func(ctx context.Context) error {
		if results.Role != RoleResults || results.Handle != s.windows[RoleResults] {
			return errors.NewNavigationError("activate_result_window", "window is not the tracked results window", nil).
				WithContext("role", string(results.Role)).
				WithContext("handle", string(results.Handle))
		}
		return s.switchTo(ctx, "activate_result_window", results.Handle)
	})
	if err != nil {
		return domain.DownloadLocator{}, err
	}

	err = s.step(ctx, "request_download", StateResultWindowActive, StateDownloadLinkObtained, func(ctx context.Context) error {
		if err := s.click(ctx, "request_download", s.contract.Download); err != nil {
			return err
		}
		h, err := s.awaitNewWindow(ctx, "request_download", RoleDownload)
		if err != nil {
			return err
		}
		if err := s.switchTo(ctx, "request_download", h); err != nil {
			return err
		}
		href, err := s.transport.Attribute(ctx, s.contract.CSVLink, s.contract.LinkAttribute)
		if err != nil {
			return errors.NewNavigationError("request_download", "failed to read download link", err).
				WithContext("locator", s.contract.CSVLink.String())
		}
		resolved, err := resolveLink(s.driver.PortalURL, href)
		if err != nil {
			return errors.NewNavigationError("request_download", "invalid download link", err).
				WithContext("href", href)
		}
		s.locator = domain.DownloadLocator{URL: resolved, ObtainedAt: s.now()}
		return nil
	})
	if err != nil {
		return domain.DownloadLocator{}, err
	}
	return s.locator, nil
}

// Run drives the whole sequence from a fresh session to a download locator.
// It does not close the session.
func (s *Session) Run(ctx context.Context, currency domain.Currency, fromYear, toYear int) (domain.DownloadLocator, error) {
	if err := s.Open(ctx); err != nil {
		return domain.DownloadLocator{}, err
	}
	if err := s.SelectCategory(ctx); err != nil {
		return domain.DownloadLocator{}, err
	}
	if err := s.SelectDataItems(ctx, currency); err != nil {
		return domain.DownloadLocator{}, err
	}
	if err := s.AddToExtractionCriteria(ctx); err != nil {
		return domain.DownloadLocator{}, err
	}
	if err := s.SetDateRange(ctx, fromYear, toYear); err != nil {
		return domain.DownloadLocator{}, err
	}
	results, err := s.SubmitExtraction(ctx)
	if err != nil {
		return domain.DownloadLocator{}, err
	}
	return s.RequestDownload(ctx, results)
}

// Close quits the browser. It is valid in every state and only the first
// call reaches the transport; later calls return the first result.
func (s *Session) Close() error {
	if s.closed {
		return s.closeErr
	}
	s.closed = true
	from := s.state
	s.state = StateClosed

	if err := s.transport.Quit(); err != nil {
		s.closeErr = errors.NewNavigationError("close", "failed to quit browser", err)
		s.logger.Warn("navigation_close_failed",
			slog.String("from_state", from.String()),
			slog.String("error", err.Error()))
		return s.closeErr
	}

	s.logger.Debug("navigation_closed", slog.String("from_state", from.String()))
	return nil
}

// step runs fn as the transition from → to.
func (s *Session) step(ctx context.Context, name string, from, to State, fn func(context.Context) error) error {
	if s.state != from {
		return s.outOfOrder(name, from)
	}

	ctx, span := infrastructure.Tracer().Start(ctx, "navigation."+name)
	defer span.End()
	span.SetAttributes(
		attribute.String("navigation.from", from.String()),
		attribute.String("navigation.to", to.String()))

	start := s.now()
	err := fn(ctx)
	duration := s.now().Sub(start)
	s.metrics.RecordNavigationStep(ctx, name, duration, err)

	if err != nil {
		s.state = StateFailed
		s.failedStep = name
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "navigation_step_failed",
			slog.String("step", name),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return err
	}

	s.state = to
	s.logger.InfoContext(ctx, "navigation_step_complete",
		slog.String("step", name),
		slog.String("state", to.String()),
		slog.Duration("duration", duration))
	return nil
}

func (s *Session) outOfOrder(name string, want State) error {
	var msg string
	switch s.state {
	case StateClosed:
		msg = "session is closed"
	case StateFailed:
		msg = fmt.Sprintf("session failed at %s; only Close is allowed", s.failedStep)
	default:
		msg = fmt.Sprintf("session is %s, step requires %s", s.state, want)
	}
	return errors.NewNavigationError(name, msg, ErrOutOfOrder).
		WithContext("state", s.state.String())
}

// browserError classifies a failed browser call. When the caller's context
// has ended the failure says nothing about the page, so it is reported as a
// cancellation rather than a NavigationError.
func browserError(ctx context.Context, step, msg string, err error) *errors.AppError {
	if ctx.Err() != nil {
		return errors.NewCanceledError(step, err)
	}
	return errors.NewNavigationError(step, msg, err)
}

func (s *Session) click(ctx context.Context, step string, loc Locator) error {
	if err := s.transport.Click(ctx, loc); err != nil {
		return browserError(ctx, step, "failed to click "+loc.Name, err).
			WithContext("locator", loc.String())
	}
	return nil
}

func (s *Session) sendKeys(ctx context.Context, step string, loc Locator, text string) error {
	if err := s.transport.SendKeys(ctx, loc, text); err != nil {
		return browserError(ctx, step, "failed to type into "+loc.Name, err).
			WithContext("locator", loc.String())
	}
	return nil
}

func (s *Session) switchTo(ctx context.Context, step string, h WindowHandle) error {
	if err := s.transport.SwitchTo(ctx, h); err != nil {
		return browserError(ctx, step, "failed to switch window", err).
			WithContext("handle", string(h))
	}
	return nil
}

func (s *Session) rememberWindows(ctx context.Context, step string) error {
	handles, err := s.transport.WindowHandles(ctx)
	if err != nil {
		return browserError(ctx, step, "failed to list windows", err)
	}
	for _, h := range handles {
		s.known[h] = struct{}{}
	}
	return nil
}

// awaitNewWindow waits for exactly one window that was not open before. Each
// attempt polls for up to the driver's window timeout and fails with a
// TimingError; attempts back off per the timing retry policy and running out
// escalates to a NavigationError. More than one new window fails at once.
func (s *Session) awaitNewWindow(ctx context.Context, step string, role WindowRole) (WindowHandle, error) {
	var found WindowHandle
	err := s.retrier.Do(ctx, step, func(ctx context.Context) error {
		h, err := s.pollNewWindow(ctx, step)
		if err != nil {
			return err
		}
		found = h
		return nil
	})
	if err != nil {
		if errors.GetErrorType(err) == errors.ErrTypeCanceled {
			return "", err
		}
		if ctx.Err() != nil {
			return "", errors.NewCanceledError(step, err)
		}
		var exhausted *retry.ExhaustedError
		if stderrors.As(err, &exhausted) {
			return "", errors.NewNavigationError(step,
				fmt.Sprintf("%s window did not open after %d attempts", role, exhausted.Attempts), err)
		}
		if errors.HasType(err, errors.ErrTypeNavigation) {
			return "", err
		}
		return "", errors.NewNavigationError(step, fmt.Sprintf("waiting for %s window", role), err)
	}

	s.known[found] = struct{}{}
	s.windows[role] = found
	s.logger.DebugContext(ctx, "window_opened",
		slog.String("role", string(role)),
		slog.String("handle", string(found)))
	return found, nil
}

func (s *Session) pollNewWindow(ctx context.Context, step string) (WindowHandle, error) {
	deadline := s.now().Add(s.driver.WindowTimeout)
	for {
		handles, err := s.transport.WindowHandles(ctx)
		if err != nil {
			return "", browserError(ctx, step, "failed to list windows", err)
		}

		var fresh []WindowHandle
		for _, h := range handles {
			if _, ok := s.known[h]; !ok {
				fresh = append(fresh, h)
			}
		}
		switch {
		case len(fresh) == 1:
			return fresh[0], nil
		case len(fresh) > 1:
			return "", errors.NewNavigationError(step,
				fmt.Sprintf("expected one new window, found %d", len(fresh)), nil).
				WithContext("handles", fresh)
		}

		if !s.now().Before(deadline) {
			return "", errors.NewTimingError(step,
				fmt.Sprintf("no new window within %s", s.driver.WindowTimeout))
		}
		if err := s.sleep(ctx, s.driver.PollInterval); err != nil {
			return "", err
		}
	}
}

// resolveLink resolves href against the portal page it was read from.
func resolveLink(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
