package extractor

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bojfx/internal/config"
	"bojfx/internal/errors"
	"bojfx/internal/infrastructure"
	"bojfx/internal/navigation"
	"bojfx/internal/shared/testutil"
	"bojfx/pkg/contracts/domain"
)

type stubFetcher struct {
	table *domain.RawTable
	err   error
	got   []domain.DownloadLocator
}

func (f *stubFetcher) Fetch(ctx context.Context, loc domain.DownloadLocator) (*domain.RawTable, error) {
	f.got = append(f.got, loc)
	return f.table, f.err
}

func testConfig(currency string, calendar bool) *config.Config {
	cfg := config.Default()
	cfg.Extraction.Currency = currency
	cfg.Extraction.CalendarFeatures = calendar
	cfg.Browser.WindowTimeout = time.Second
	cfg.Browser.PollInterval = 10 * time.Millisecond
	cfg.TimingRetry = config.RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// usdTable is a USD download with one incomplete row
func usdTable() *domain.RawTable {
	dates := []string{"2024/01/02", "2024/01/04", "2024/01/05"}
	return testutil.PortalTable("USD", dates, func(r, c int) string {
		switch {
		case r == 0:
			return fmt.Sprintf("%d.5", 140+c)
		case r == 1 && c == 2:
			return "NA    "
		case r == 1:
			return "1"
		default:
			return fmt.Sprintf("%d.25", 141+c)
		}
	})
}

func newTestExtractor(t *testing.T, cfg *config.Config, browser *testutil.ScriptedTransport, fetcher Fetcher) (*Extractor, *int) {
	t.Helper()
	built := 0
	factory := func() navigation.Transport {
		built++
		return browser
	}
	e, err := New(cfg, factory, WithFetcher(fetcher), WithLogger(quietLogger()))
	require.NoError(t, err)
	return e, &built
}

func TestGetData(t *testing.T) {
	browser := &testutil.ScriptedTransport{Href: "../html/fm08.csv"}
	fetcher := &stubFetcher{table: usdTable()}
	logger, logs := testutil.NewTestLogger(t)

	built := 0
	e, err := New(testConfig("USD", false), func() navigation.Transport {
		built++
		return browser
	}, WithFetcher(fetcher), WithLogger(logger))
	require.NoError(t, err)

	frame, err := e.GetData(context.Background(), 2024, 2024)
	require.NoError(t, err)

	assert.Equal(t, config.DataItemLabels("USD"), frame.Columns)
	assert.Equal(t, 2, frame.Len())
	assert.Equal(t, 140.5, frame.Values[0][0])
	assert.Equal(t, 147.25, frame.Values[1][6])

	require.Len(t, fetcher.got, 1)
	assert.Equal(t, "http://www.stat-search.boj.or.jp/ssi/html/fm08.csv", fetcher.got[0].URL)
	assert.Equal(t, 1, built)
	assert.Equal(t, 1, browser.Quits)

	testutil.AssertLogContains(t, logs, slog.LevelInfo, "extraction_complete")
	testutil.AssertLogAttr(t, logs, "currency", "USD")
	testutil.AssertNoErrors(t, logs)
}

func TestGetData_CalendarFeatures(t *testing.T) {
	browser := &testutil.ScriptedTransport{Href: "x.csv"}
	e, _ := newTestExtractor(t, testConfig("USD", true), browser, &stubFetcher{table: usdTable()})

	frame, err := e.GetData(context.Background(), 2024, 2024)
	require.NoError(t, err)

	labels := config.DataItemLabels("USD")
	require.Greater(t, frame.Width(), len(labels))
	assert.Equal(t, labels, frame.Columns[:len(labels)])
	// 2024-01-02 (Tue) and 2024-01-05 (Fri)
	assert.Equal(t, []string{"day_5", "weekday_4"}, frame.Columns[len(labels):])
	assert.Equal(t, []float64{1, 1}, frame.Values[1][len(labels):])
}

func TestGetData_ClosesOnEveryPath(t *testing.T) {
	badShape := usdTable()
	badShape.Header = badShape.Header[:3]

	tests := []struct {
		name    string
		failOn  string
		fetcher *stubFetcher
		errType errors.ErrorType
	}{
		{name: "launch fails", failOn: "launch", fetcher: &stubFetcher{}, errType: errors.ErrTypeNavigation},
		{name: "checkbox missing", failOn: "data_item_4", fetcher: &stubFetcher{}, errType: errors.ErrTypeNavigation},
		{name: "download link missing", failOn: "csv_link", fetcher: &stubFetcher{}, errType: errors.ErrTypeNavigation},
		{
			name:    "fetch fails",
			fetcher: &stubFetcher{err: errors.NewNetworkError("download returned status 404", nil, false)},
			errType: errors.ErrTypeNetwork,
		},
		{name: "bad shape", fetcher: &stubFetcher{table: badShape}, errType: errors.ErrTypeDataShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			browser := &testutil.ScriptedTransport{Href: "x.csv", FailOn: tt.failOn}
			e, _ := newTestExtractor(t, testConfig("USD", true), browser, tt.fetcher)

			frame, err := e.GetData(context.Background(), 2020, 2024)
			require.Error(t, err)
			assert.Nil(t, frame)
			assert.True(t, errors.HasType(err, tt.errType), "got %v", err)
			assert.Equal(t, 1, browser.Quits)
		})
	}
}

func TestGetData_CloseFailure(t *testing.T) {
	t.Run("after success", func(t *testing.T) {
		browser := &testutil.ScriptedTransport{Href: "x.csv", QuitErr: fmt.Errorf("chrome hung")}
		e, _ := newTestExtractor(t, testConfig("USD", false), browser, &stubFetcher{table: usdTable()})

		frame, err := e.GetData(context.Background(), 2024, 2024)
		require.Error(t, err)
		assert.Nil(t, frame)
		assert.Contains(t, err.Error(), "chrome hung")
		assert.Equal(t, 1, browser.Quits)
	})

	t.Run("joined with earlier failure", func(t *testing.T) {
		browser := &testutil.ScriptedTransport{FailOn: "category_menu", QuitErr: fmt.Errorf("chrome hung")}
		e, _ := newTestExtractor(t, testConfig("USD", false), browser, &stubFetcher{})

		_, err := e.GetData(context.Background(), 2024, 2024)
		require.Error(t, err)
		assert.ErrorIs(t, err, navigation.ErrElementNotFound)
		assert.Contains(t, err.Error(), "chrome hung")

		var appErr *errors.AppError
		require.True(t, stderrors.As(err, &appErr))
		assert.Equal(t, "select_category", appErr.Step)
	})
}

func TestGetData_InvalidRequest(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
	}{
		{name: "reversed", from: 2024, to: 2020},
		{name: "two digit year", from: 24, to: 2024},
		{name: "five digit year", from: 2020, to: 20240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			browser := &testutil.ScriptedTransport{}
			e, built := newTestExtractor(t, testConfig("USD", false), browser, &stubFetcher{})

			_, err := e.GetData(context.Background(), tt.from, tt.to)
			require.Error(t, err)
			assert.True(t, errors.HasType(err, errors.ErrTypeValidation))
			assert.Equal(t, 0, *built, "no browser for an invalid request")
		})
	}
}

func TestNew_Errors(t *testing.T) {
	factory := func() navigation.Transport { return &testutil.ScriptedTransport{} }

	_, err := New(nil, factory)
	assert.True(t, errors.HasType(err, errors.ErrTypeConfig))

	_, err = New(testConfig("USD", false), nil)
	assert.True(t, errors.HasType(err, errors.ErrTypeConfig))

	_, err = New(testConfig("GBP", false), factory)
	assert.True(t, errors.HasType(err, errors.ErrTypeConfig))

	e, err := New(testConfig("eur", false), factory, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, domain.CurrencyEUR, e.Currency())
}

func TestGetData_NilTransport(t *testing.T) {
	fetcher := &stubFetcher{}
	e, err := New(testConfig("USD", false), func() navigation.Transport { return nil },
		WithFetcher(fetcher), WithLogger(quietLogger()))
	require.NoError(t, err)

	var frame *domain.Frame
	require.NotPanics(t, func() {
		frame, err = e.GetData(context.Background(), 2024, 2024)
	})
	require.Error(t, err)
	assert.Nil(t, frame)
	assert.True(t, errors.HasType(err, errors.ErrTypeConfig), "got %v", err)
	assert.Empty(t, fetcher.got)
}

func TestGetData_EndToEnd(t *testing.T) {
	raw := usdTable()
	var csv strings.Builder
	csv.WriteString(strings.Join(raw.Header, ",") + "\n")
	for _, row := range raw.Rows {
		csv.WriteString(strings.Join(row, ",") + "\n")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, csv.String())
	}))
	defer srv.Close()

	var logs bytes.Buffer
	logger := infrastructure.NewLogger(config.LoggingConfig{Level: "info", Format: "json"}, &logs)

	browser := &testutil.ScriptedTransport{Href: srv.URL + "/fm08.csv"}
	e, err := New(testConfig("USD", false), func() navigation.Transport { return browser }, WithLogger(logger))
	require.NoError(t, err)

	ctx := infrastructure.WithTraceID(context.Background(), "trace-123")
	frame, err := e.GetData(ctx, 2024, 2024)
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Len())
	assert.Equal(t, 1, browser.Quits)

	assert.Contains(t, logs.String(), `"trace_id":"trace-123"`)
	assert.Contains(t, logs.String(), "extraction_complete")
}
