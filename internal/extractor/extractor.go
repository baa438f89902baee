// Package extractor is the single entry point of the BOJ FX pipeline. It
// drives a navigation session to a download link, fetches and reshapes the
// CSV and optionally appends calendar features.
package extractor

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"bojfx/internal/config"
	"bojfx/internal/dataprocessing"
	"bojfx/internal/errors"
	"bojfx/internal/infrastructure"
	"bojfx/internal/loader"
	"bojfx/internal/navigation"
	"bojfx/pkg/contracts/domain"
)

// Fetcher downloads the CSV behind a locator
type Fetcher interface {
	Fetch(ctx context.Context, loc domain.DownloadLocator) (*domain.RawTable, error)
}

// Extractor composes navigation, download, reshaping and calendar features.
// It holds no per-call state; every call builds its own browser session.
type Extractor struct {
	currency    domain.Currency
	calendar    bool
	driver      domain.DriverConfig
	factory     navigation.TransportFactory
	fetcher     Fetcher
	reshaper    *dataprocessing.Reshaper
	sessionOpts []navigation.Option
	logger      *slog.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithFetcher replaces the HTTP loader
func WithFetcher(f Fetcher) Option {
	return func(e *Extractor) { e.fetcher = f }
}

// WithSessionOptions are passed to every navigation session
func WithSessionOptions(opts ...navigation.Option) Option {
	return func(e *Extractor) { e.sessionOpts = append(e.sessionOpts, opts...) }
}

// WithLogger sets the extractor logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// New builds an Extractor from cfg. factory supplies a fresh browser per call.
func New(cfg *config.Config, factory navigation.TransportFactory, opts ...Option) (*Extractor, error) {
	if cfg == nil {
		return nil, errors.NewConfigError("extractor needs a configuration", nil)
	}
	if factory == nil {
		return nil, errors.NewConfigError("extractor needs a transport factory", nil)
	}
	currency, err := domain.ParseCurrency(cfg.Extraction.Currency)
	if err != nil {
		return nil, errors.NewConfigError("invalid extraction currency", err)
	}

	e := &Extractor{
		currency: currency,
		calendar: cfg.Extraction.CalendarFeatures,
		driver: domain.DriverConfig{
			ExecPath:       cfg.Browser.ExecPath,
			Headless:       cfg.Browser.Headless,
			PortalURL:      cfg.Browser.PortalURL,
			ElementTimeout: cfg.Browser.ElementTimeout,
			WindowTimeout:  cfg.Browser.WindowTimeout,
			PollInterval:   cfg.Browser.PollInterval,
			ActionInterval: cfg.Browser.ActionInterval,
		},
		factory: factory,
		logger:  infrastructure.GetLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.logger = infrastructure.WithComponent(e.logger, "extractor")
	e.sessionOpts = append([]navigation.Option{
		navigation.WithTimingRetry(cfg.TimingRetry),
		navigation.WithLogger(e.logger),
	}, e.sessionOpts...)
	if e.fetcher == nil {
		e.fetcher = loader.New(cfg.Download, cfg.NetworkRetry, loader.WithLogger(e.logger))
	}
	e.reshaper = dataprocessing.NewReshaper(dataprocessing.WithReshapeLogger(e.logger))
	return e, nil
}

// Currency returns the configured currency group
func (e *Extractor) Currency() domain.Currency {
	return e.currency
}

// GetData extracts the configured currency's daily series for the inclusive
// year range. With calendar features enabled their columns follow the
// series columns. Nothing is returned on error.
func (e *Extractor) GetData(ctx context.Context, fromYear, toYear int) (*domain.Frame, error) {
	req, err := domain.NewExtractionRequest(e.currency, fromYear, toYear, e.calendar, e.driver)
	if err != nil {
		return nil, errors.NewValidationError("invalid extraction request", err)
	}
	return e.Extract(ctx, req)
}

// Extract runs the pipeline for an explicit request. The browser is closed
// exactly once before Extract returns and a close failure fails the call.
func (e *Extractor) Extract(ctx context.Context, req domain.ExtractionRequest) (frame *domain.Frame, err error) {
	if err := req.Validate(); err != nil {
		return nil, errors.NewValidationError("invalid extraction request", err)
	}

	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := infrastructure.Tracer().Start(ctx, "extractor.get_data")
	defer span.End()
	span.SetAttributes(
		attribute.String("extraction.currency", req.Currency.String()),
		attribute.Int("extraction.from_year", req.FromYear),
		attribute.Int("extraction.to_year", req.ToYear),
		attribute.Bool("extraction.calendar", req.AddCalendarFeatures))

	start := time.Now()
	e.logger.InfoContext(ctx, "extraction_started",
		slog.String("currency", req.Currency.String()),
		slog.Int("from_year", req.FromYear),
		slog.Int("to_year", req.ToYear),
		slog.Bool("calendar_features", req.AddCalendarFeatures))

	defer func() {
		infrastructure.Metrics().RecordExtraction(ctx, req.Currency.String(), time.Since(start), err)
		if err != nil {
			infrastructure.RecordError(ctx, err)
			e.logger.ErrorContext(ctx, "extraction_failed",
				slog.String("error_type", string(errors.GetErrorType(err))),
				slog.String("error", err.Error()),
				slog.Duration("duration", time.Since(start)))
			return
		}
		e.logger.InfoContext(ctx, "extraction_complete",
			slog.Int("rows", frame.Len()),
			slog.Int("columns", frame.Width()),
			slog.Duration("duration", time.Since(start)))
	}()

	transport := e.factory()
	if transport == nil {
		return nil, errors.NewConfigError("transport factory returned no browser", nil)
	}
	session := navigation.NewSession(transport, req.Driver, e.sessionOpts...)
	defer func() {
		if cerr := session.Close(); cerr != nil {
			frame = nil
			err = stderrors.Join(err, cerr)
		}
	}()

	locator, err := session.Run(ctx, req.Currency, req.FromYear, req.ToYear)
	if err != nil {
		return nil, err
	}

	raw, err := e.fetcher.Fetch(ctx, locator)
	if err != nil {
		return nil, err
	}

	series, stats, err := e.reshaper.ReshapeWithStats(raw, config.DataItemLabels(req.Currency.String()))
	if err != nil {
		return nil, err
	}
	infrastructure.Metrics().RecordRows(ctx, stats.RowsKept, stats.RowsDropped)
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"extraction.rows_kept":    stats.RowsKept,
		"extraction.rows_dropped": stats.RowsDropped,
	})

	if !req.AddCalendarFeatures {
		return series, nil
	}
	combined, err := series.HStack(dataprocessing.BuildCalendarFeatures(series.Index))
	if err != nil {
		return nil, errors.NewDataShapeError(fmt.Sprintf("cannot append calendar features to %d rows", series.Len()), err)
	}
	return combined, nil
}
