package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"bojfx/internal/config"
	"bojfx/internal/dataprocessing"
	"bojfx/internal/errors"
	"bojfx/internal/exporter"
	"bojfx/internal/extractor"
	"bojfx/internal/infrastructure"
	"bojfx/internal/navigation"
	"bojfx/pkg/contracts"
	"bojfx/pkg/contracts/domain"
)

// cliOptions holds parsed command line flags. set records which flags were
// given explicitly so only those override the configuration.
type cliOptions struct {
	configPath  string
	currency    string
	fromYear    int
	toYear      int
	calendar    bool
	out         string
	format      string
	headless    bool
	driver      string
	metricsFile string
	summary     bool
	logLevel    string
	version     bool

	set map[string]bool
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC RECOVERED: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			infrastructure.GetLogger().Error("bojfx panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], navigation.ChromedpFactory, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func parseFlags(args []string) (*cliOptions, error) {
	opts := &cliOptions{set: make(map[string]bool)}

	fs := flag.NewFlagSet(config.AppName, flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to YAML config (defaults to bojfx.yaml, config.yaml or configs/config.yaml)")
	fs.StringVar(&opts.currency, "currency", "", "currency group: USD | EUR")
	fs.IntVar(&opts.fromYear, "from", 0, "first year to extract (YYYY)")
	fs.IntVar(&opts.toYear, "to", 0, "last year to extract (YYYY), inclusive")
	fs.BoolVar(&opts.calendar, "calendar", false, "append day, month, weekday and ISO week indicator columns")
	fs.StringVar(&opts.out, "out", "", "output file (defaults to data/boj_<currency>_<from>_<to>.<format> next to the executable)")
	fs.StringVar(&opts.format, "format", "csv", "output format: csv | xlsx")
	fs.BoolVar(&opts.headless, "headless", true, "run browser headless")
	fs.StringVar(&opts.driver, "driver", "", "path to the Chrome executable")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	fs.BoolVar(&opts.summary, "summary", false, "log descriptive statistics and write a JSON summary next to the output")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug | info | warn | error")
	fs.BoolVar(&opts.version, "version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		return nil, errors.NewValidationError("invalid arguments", err)
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	if opts.version {
		return opts, nil
	}

	if !opts.set["from"] || !opts.set["to"] {
		return nil, errors.NewValidationError("-from and -to are required", nil)
	}
	opts.format = strings.ToLower(opts.format)
	if opts.format != "csv" && opts.format != "xlsx" {
		return nil, errors.NewValidationError(fmt.Sprintf("unsupported format %q: want csv or xlsx", opts.format), nil)
	}
	return opts, nil
}

// applyOverrides copies explicitly set flags onto cfg
func applyOverrides(cfg *config.Config, opts *cliOptions) {
	if opts.set["currency"] {
		cfg.Extraction.Currency = opts.currency
	}
	if opts.set["calendar"] {
		cfg.Extraction.CalendarFeatures = opts.calendar
	}
	if opts.set["headless"] {
		cfg.Browser.Headless = opts.headless
	}
	if opts.set["driver"] {
		cfg.Browser.ExecPath = opts.driver
	}
	if opts.set["metrics-file"] {
		cfg.Telemetry.EnableMetrics = opts.metricsFile != ""
		cfg.Telemetry.MetricsFile = opts.metricsFile
	}
	if opts.set["log-level"] {
		cfg.Logging.Level = opts.logLevel
	}
}

func outputName(currency domain.Currency, from, to int, format string) string {
	return fmt.Sprintf("boj_%s_%d_%d.%s", strings.ToLower(currency.String()), from, to, format)
}

func run(ctx context.Context, args []string, factory navigation.TransportFactory, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return errors.NewConfigError("failed to load configuration", err)
	}
	applyOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return errors.NewConfigError("invalid configuration", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return errors.NewConfigError("failed to initialize logger", err)
	}
	defer infrastructure.CloseLogFile()

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, os.Stderr, logger)
	if err != nil {
		return errors.NewConfigError("failed to initialize telemetry", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := providers.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", serr.Error()))
		}
	}()

	ext, err := extractor.New(cfg, factory, extractor.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx = infrastructure.ContextWithTraceID(ctx)
	logger.InfoContext(ctx, "bojfx starting",
		slog.String("version", config.AppVersion),
		slog.String("commit", contracts.GitCommit),
		slog.String("currency", ext.Currency().String()),
		slog.Int("from_year", opts.fromYear),
		slog.Int("to_year", opts.toYear),
		slog.String("format", opts.format))

	frame, err := ext.GetData(ctx, opts.fromYear, opts.toYear)
	if err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		out = outputName(ext.Currency(), opts.fromYear, opts.toYear, opts.format)
	}
	var paths *config.Paths
	if !filepath.IsAbs(out) {
		if paths, err = config.GetPaths(); err != nil {
			return errors.NewStorageError("failed to resolve output directory", err)
		}
		paths.LogPathResolution(logger)
	}

	var written string
	switch opts.format {
	case "xlsx":
		written, err = exporter.NewXLSXWriter(paths, exporter.WithLogger(logger)).WriteFrame(ctx, out, frame)
	default:
		written, err = exporter.NewCSVWriter(paths, exporter.WithLogger(logger)).WriteFrame(ctx, out, frame)
	}
	if err != nil {
		return err
	}

	if opts.summary {
		if err := summarize(ctx, logger, frame, written); err != nil {
			return err
		}
	}

	fmt.Fprintln(stdout, written)
	return nil
}

// summarize logs per-column statistics and writes them with the correlation
// matrix to <output>_summary.json.
func summarize(ctx context.Context, logger *slog.Logger, frame *domain.Frame, written string) error {
	s := dataprocessing.NewSummarizer(logger)
	summaries, err := s.Describe(ctx, frame)
	if err != nil {
		return errors.NewDataShapeError("failed to summarize series", err)
	}
	for _, sum := range summaries {
		logger.InfoContext(ctx, "column_summary",
			slog.String("column", sum.Column),
			slog.Int("count", sum.Count),
			slog.Float64("mean", sum.Mean),
			slog.Float64("std", sum.Std),
			slog.Float64("min", sum.Min),
			slog.Float64("median", sum.Median),
			slog.Float64("max", sum.Max))
	}

	path := strings.TrimSuffix(written, filepath.Ext(written)) + "_summary.json"
	return s.WriteJSON(ctx, path, summaries, s.Correlations(frame))
}

// exitCode maps usage and configuration problems to 2, everything else to 1
func exitCode(err error) int {
	switch errors.GetErrorType(err) {
	case errors.ErrTypeValidation, errors.ErrTypeConfig:
		return 2
	default:
		return 1
	}
}
