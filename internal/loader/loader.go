// Package loader fetches a portal CSV download and parses it into a raw
// table.
package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/encoding/japanese"

	"bojfx/internal/config"
	"bojfx/internal/errors"
	"bojfx/internal/infrastructure"
	"bojfx/internal/retry"
	"bojfx/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader downloads and parses CSV files
type Loader struct {
	client  *http.Client
	cfg     config.DownloadConfig
	retrier *retry.Retrier
	logger  *slog.Logger
}

// Option configures a Loader
type Option func(*options)

type options struct {
	client    *http.Client
	logger    *slog.Logger
	retryOpts []retry.Option
}

// WithHTTPClient replaces the HTTP client. Its timeout takes precedence over
// the configured one.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithLogger sets the loader logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRetryOptions passes options to the network retrier
func WithRetryOptions(opts ...retry.Option) Option {
	return func(o *options) { o.retryOpts = append(o.retryOpts, opts...) }
}

// New creates a Loader. Transient failures are retried per networkRetry.
func New(cfg config.DownloadConfig, networkRetry config.RetryConfig, opts ...Option) *Loader {
	o := options{logger: infrastructure.GetLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = config.MaxDownloadBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}

	logger := infrastructure.WithComponent(o.logger, "loader")
	return &Loader{
		client:  o.client,
		cfg:     cfg,
		retrier: retry.New(networkRetry, append([]retry.Option{retry.WithLogger(logger)}, o.retryOpts...)...),
		logger:  logger,
	}
}

// Fetch downloads the CSV behind loc and returns its header and rows as
// text. Shift_JIS content is decoded to UTF-8. The result is returned whole
// or not at all.
func (l *Loader) Fetch(ctx context.Context, loc domain.DownloadLocator) (*domain.RawTable, error) {
	if loc.URL == "" {
		return nil, errors.NewValidationError("download locator has no URL", nil)
	}

	ctx, span := infrastructure.Tracer().Start(ctx, "loader.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("download.url", loc.URL))

	start := time.Now()
	var body []byte
	err := l.retrier.Do(ctx, "download", func(ctx context.Context) error {
		b, err := l.get(ctx, loc.URL)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		err = l.escalate(err)
		infrastructure.RecordError(ctx, err)
		l.logger.ErrorContext(ctx, "download_failed",
			slog.String("url", loc.URL),
			slog.String("error", err.Error()))
		return nil, err
	}
	infrastructure.Metrics().RecordDownload(ctx, int64(len(body)))

	table, err := Parse(body)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	l.logger.InfoContext(ctx, "download_complete",
		slog.String("url", loc.URL),
		slog.Int("bytes", len(body)),
		slog.Int("rows", len(table.Rows)),
		slog.Int("columns", table.Width()),
		slog.Duration("duration", time.Since(start)))
	return table, nil
}

func (l *Loader) escalate(err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		if errors.GetErrorType(err) == errors.ErrTypeNetwork && !errors.IsRetryable(err) {
			return err
		}
		return errors.NewNetworkError("download canceled", err, false)
	}
	var exhausted *retry.ExhaustedError
	if stderrors.As(err, &exhausted) {
		return errors.NewNetworkError(
			fmt.Sprintf("download failed after %d attempts", exhausted.Attempts), err, false)
	}
	if errors.GetErrorType(err) == "" {
		return errors.NewNetworkError("download aborted", err, false)
	}
	return err
}

// get performs one download attempt. Transport failures, 5xx and 429 are
// retryable; any other non-2xx status is not.
func (l *Loader) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewNetworkError("invalid download request", err, false).
			WithContext("url", url)
	}
	req.Header.Set("User-Agent", l.cfg.UserAgent)
	req.Header.Set("Accept", "text/csv, */*")

	resp, err := l.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewNetworkError("download canceled", err, false)
		}
		return nil, errors.NewNetworkError("download request failed", err, true).
			WithContext("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, errors.NewNetworkError(fmt.Sprintf("download returned status %d", resp.StatusCode), nil, retryable).
			WithContext("url", url).
			WithContext("status_code", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.cfg.MaxBytes+1))
	if err != nil {
		return nil, errors.NewNetworkError("failed to read download body", err, true).
			WithContext("url", url)
	}
	if int64(len(body)) > l.cfg.MaxBytes {
		return nil, errors.NewFormatError(fmt.Sprintf("download exceeds %d bytes", l.cfg.MaxBytes), nil)
	}
	return body, nil
}

// Parse decodes a downloaded CSV. Rows may differ in width; shape checks are
// left to the reshaper.
func Parse(body []byte) (*domain.RawTable, error) {
	text, err := decode(body)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(text)
	if len(trimmed) == 0 {
		return nil, errors.NewFormatError("download is empty", nil)
	}
	if trimmed[0] == '<' {
		return nil, errors.NewFormatError("download is an HTML page, not CSV", nil)
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.NewFormatError("download is not valid CSV", err)
	}
	if len(records) == 0 {
		return nil, errors.NewFormatError("download has no header", nil)
	}

	return &domain.RawTable{Header: records[0], Rows: records[1:]}, nil
}

// decode returns body as UTF-8. Anything that is not valid UTF-8 is read as
// Shift_JIS, the portal's encoding.
func decode(body []byte) ([]byte, error) {
	body = bytes.TrimPrefix(body, utf8BOM)
	if utf8.Valid(body) {
		return body, nil
	}
	out, err := japanese.ShiftJIS.NewDecoder().Bytes(body)
	if err != nil {
		return nil, errors.NewFormatError("download is neither UTF-8 nor Shift_JIS", err)
	}
	return out, nil
}
