package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDriver() DriverConfig {
	return DriverConfig{
		Headless:       true,
		PortalURL:      "http://www.stat-search.boj.or.jp/ssi/cgi-bin/famecgi2?cgi=$nme_a000&lstSelection=FM08",
		ElementTimeout: 20 * time.Second,
		WindowTimeout:  10 * time.Second,
		PollInterval:   250 * time.Millisecond,
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in      string
		want    Currency
		wantErr bool
	}{
		{in: "USD", want: CurrencyUSD},
		{in: " eur ", want: CurrencyEUR},
		{in: "GBP", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCurrency(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, string(tt.want), got.String())
		})
	}
}

func TestNewExtractionRequest(t *testing.T) {
	tests := []struct {
		name        string
		currency    Currency
		from, to    int
		mutate      func(*DriverConfig)
		wantErr     bool
		errContains string
	}{
		{name: "valid range", currency: CurrencyUSD, from: 2020, to: 2024},
		{name: "single year", currency: CurrencyEUR, from: 2024, to: 2024},
		{name: "inverted range", currency: CurrencyUSD, from: 2024, to: 2020, wantErr: true, errContains: "ToYear"},
		{name: "three digit year", currency: CurrencyUSD, from: 999, to: 2020, wantErr: true, errContains: "FromYear"},
		{name: "five digit year", currency: CurrencyUSD, from: 2020, to: 10000, wantErr: true, errContains: "ToYear"},
		{name: "unknown currency", currency: "JPY", from: 2020, to: 2021, wantErr: true, errContains: "Currency"},
		{
			name:        "driver without portal url",
			currency:    CurrencyUSD,
			from:        2020,
			to:          2021,
			mutate:      func(d *DriverConfig) { d.PortalURL = "" },
			wantErr:     true,
			errContains: "PortalURL",
		},
		{
			name:        "driver without window timeout",
			currency:    CurrencyUSD,
			from:        2020,
			to:          2021,
			mutate:      func(d *DriverConfig) { d.WindowTimeout = 0 },
			wantErr:     true,
			errContains: "WindowTimeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver := testDriver()
			if tt.mutate != nil {
				tt.mutate(&driver)
			}
			req, err := NewExtractionRequest(tt.currency, tt.from, tt.to, true, driver)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Equal(t, ExtractionRequest{}, req)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.currency, req.Currency)
			assert.True(t, req.AddCalendarFeatures)
		})
	}
}

func TestRawTableWidth(t *testing.T) {
	var nilTable *RawTable
	assert.Equal(t, 0, nilTable.Width())
	assert.Equal(t, 3, (&RawTable{Header: []string{"a", "b", "c"}}).Width())
}

func TestDownloadLocatorString(t *testing.T) {
	loc := DownloadLocator{URL: "http://example.test/x.csv"}
	assert.Equal(t, "http://example.test/x.csv", loc.String())
}
