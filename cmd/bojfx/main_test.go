package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bojfx/internal/config"
	"bojfx/internal/errors"
	"bojfx/internal/infrastructure"
	"bojfx/internal/shared/testutil"
	"bojfx/pkg/contracts"
	"bojfx/pkg/contracts/domain"
)

func eurCSV() string {
	dates := []string{"2024/01/04", "2024/01/05", "2024/01/09"}
	return testutil.PortalCSV("EUR", dates, func(r, c int) string {
		return fmt.Sprintf("%.4f", 1.0950+float64(r+c)/1000)
	})
}

func setup(t *testing.T) (*testutil.ScriptedTransport, string) {
	t.Helper()
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, eurCSV())
	}))
	t.Cleanup(srv.Close)

	cfgPath := filepath.Join(t.TempDir(), "bojfx.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: error\n"), 0644))
	return &testutil.ScriptedTransport{Href: srv.URL + "/fm08.csv"}, cfgPath
}

func TestRun_CSV(t *testing.T) {
	browser, cfgPath := setup(t)
	out := filepath.Join(t.TempDir(), "eur.csv")

	var stdout bytes.Buffer
	err := run(context.Background(), []string{
		"-config", cfgPath,
		"-currency", "eur",
		"-from", "2024", "-to", "2024",
		"-calendar",
		"-summary",
		"-out", out,
	}, browser.Factory(), &stdout)
	require.NoError(t, err)

	assert.Equal(t, out+"\n", stdout.String())
	assert.Equal(t, 1, browser.Quits)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}))), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "date,"+config.DataItemLabels("EUR")[0]))
	assert.Contains(t, lines[0], "weekday_")
	assert.True(t, strings.HasPrefix(lines[1], "2024/01/04,1.095,1.096,1.097,"), lines[1])

	summary, err := os.ReadFile(filepath.Join(filepath.Dir(out), "eur_summary.json"))
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(summary, &doc))
	assert.Contains(t, doc, "correlations")
}

func TestRun_XLSX(t *testing.T) {
	browser, cfgPath := setup(t)
	out := filepath.Join(t.TempDir(), "eur.xlsx")

	var stdout bytes.Buffer
	err := run(context.Background(), []string{
		"-config", cfgPath, "-currency", "EUR", "-from", "2024", "-to", "2024", "-format", "xlsx", "-out", out,
	}, browser.Factory(), &stdout)
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		errType errors.ErrorType
		code    int
	}{
		{name: "missing years", args: []string{"-from", "2024"}, errType: errors.ErrTypeValidation, code: 2},
		{name: "bad format", args: []string{"-from", "2024", "-to", "2024", "-format", "parquet"}, errType: errors.ErrTypeValidation, code: 2},
		{name: "unknown flag", args: []string{"-bogus"}, errType: errors.ErrTypeValidation, code: 2},
		{name: "bad currency", args: []string{"-from", "2024", "-to", "2024", "-currency", "GBP"}, errType: errors.ErrTypeConfig, code: 2},
		{name: "reversed years", args: []string{"-from", "2024", "-to", "2020"}, errType: errors.ErrTypeValidation, code: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			browser, cfgPath := setup(t)
			args := append([]string{"-config", cfgPath}, tt.args...)

			err := run(context.Background(), args, browser.Factory(), io.Discard)
			require.Error(t, err)
			assert.True(t, errors.HasType(err, tt.errType), "got %v", err)
			assert.Equal(t, tt.code, exitCode(err))
		})
	}
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer
	err := run(context.Background(), []string{"-version"}, nil, &stdout)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout.String(), "bojfx v"+contracts.Version))
}

func TestApplyOverrides(t *testing.T) {
	opts, err := parseFlags([]string{
		"-from", "2020", "-to", "2021",
		"-headless=false", "-driver", "/opt/chrome", "-metrics-file", "/tmp/bojfx.prom", "-log-level", "debug",
	})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Extraction.CalendarFeatures = true
	applyOverrides(cfg, opts)

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "/opt/chrome", cfg.Browser.ExecPath)
	assert.True(t, cfg.Telemetry.EnableMetrics)
	assert.Equal(t, "/tmp/bojfx.prom", cfg.Telemetry.MetricsFile)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Extraction.CalendarFeatures, "unset flags keep config values")
	assert.Equal(t, "USD", cfg.Extraction.Currency)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "boj_usd_2020_2024.csv", outputName(domain.CurrencyUSD, 2020, 2024, "csv"))
	assert.Equal(t, "boj_eur_2021_2021.xlsx", outputName(domain.CurrencyEUR, 2021, 2021, "xlsx"))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(errors.NewConfigError("x", nil)))
	assert.Equal(t, 1, exitCode(errors.NewNavigationError("open", "x", nil)))
	assert.Equal(t, 1, exitCode(fmt.Errorf("plain")))
}
