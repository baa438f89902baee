package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Currency identifies a currency group on the portal
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// ParseCurrency accepts a currency group name in any case
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unsupported currency %q: want USD or EUR", s)
	}
	return c, nil
}

// Valid reports whether c is a known currency group
func (c Currency) Valid() bool {
	return c == CurrencyUSD || c == CurrencyEUR
}

func (c Currency) String() string {
	return string(c)
}

// DriverConfig describes the local browser a navigation session launches.
// The core passes it through untouched.
type DriverConfig struct {
	ExecPath       string        `json:"exec_path,omitempty"`
	Headless       bool          `json:"headless"`
	PortalURL      string        `json:"portal_url" validate:"required,url"`
	ElementTimeout time.Duration `json:"element_timeout" validate:"gt=0"`
	WindowTimeout  time.Duration `json:"window_timeout" validate:"gt=0"`
	PollInterval   time.Duration `json:"poll_interval" validate:"gt=0"`
	ActionInterval time.Duration `json:"action_interval" validate:"gte=0"`
}

// ExtractionRequest is one call's worth of parameters. It is built once and
// never mutated.
type ExtractionRequest struct {
	Currency            Currency     `json:"currency" validate:"required,oneof=USD EUR"`
	FromYear            int          `json:"from_year" validate:"min=1000,max=9999"`
	ToYear              int          `json:"to_year" validate:"min=1000,max=9999,gtefield=FromYear"`
	AddCalendarFeatures bool         `json:"add_calendar_features"`
	Driver              DriverConfig `json:"driver"`
}

var validate = validator.New()

// NewExtractionRequest builds and validates a request
func NewExtractionRequest(currency Currency, fromYear, toYear int, calendar bool, driver DriverConfig) (ExtractionRequest, error) {
	req := ExtractionRequest{
		Currency:            currency,
		FromYear:            fromYear,
		ToYear:              toYear,
		AddCalendarFeatures: calendar,
		Driver:              driver,
	}
	if err := req.Validate(); err != nil {
		return ExtractionRequest{}, err
	}
	return req, nil
}

// Validate checks the year bounds, the currency and the driver settings
func (r ExtractionRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid extraction request: %w", err)
	}
	return nil
}

// DownloadLocator is the transient CSV location resolved by one navigation
// session. It must not be reused by another session.
type DownloadLocator struct {
	URL        string    `json:"url"`
	ObtainedAt time.Time `json:"obtained_at"`
}

func (d DownloadLocator) String() string {
	return d.URL
}

// RawTable is the downloaded CSV before any cleaning. Header holds the first
// CSV record; Rows[0] is the portal's secondary label row.
type RawTable struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Width returns the header width
func (t *RawTable) Width() int {
	if t == nil {
		return 0
	}
	return len(t.Header)
}
