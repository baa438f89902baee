package testutil

import (
	"context"
	"fmt"
	"strings"

	"bojfx/internal/config"
	"bojfx/internal/navigation"
	"bojfx/pkg/contracts/domain"
)

// ScriptedTransport behaves like the portal with DefaultPageContract
// locators: clicking extract opens a results window, clicking download opens
// a download window whose link is Href.
type ScriptedTransport struct {
	Href string
	// FailOn makes the call on this locator name fail; "launch" and
	// "navigate" fail those calls.
	FailOn  string
	QuitErr error

	Calls []string
	Quits int

	handles []navigation.WindowHandle
	current navigation.WindowHandle
}

func (s *ScriptedTransport) call(name string) error {
	s.Calls = append(s.Calls, name)
	if name == s.FailOn {
		return fmt.Errorf("%s: %w", name, navigation.ErrElementNotFound)
	}
	return nil
}

func (s *ScriptedTransport) Launch(ctx context.Context, cfg domain.DriverConfig) error {
	if err := s.call("launch"); err != nil {
		return err
	}
	s.handles = []navigation.WindowHandle{"main"}
	s.current = "main"
	return nil
}

func (s *ScriptedTransport) Navigate(ctx context.Context, url string) error {
	return s.call("navigate")
}

func (s *ScriptedTransport) Click(ctx context.Context, loc navigation.Locator) error {
	if err := s.call(loc.Name); err != nil {
		return err
	}
	if loc.Name == "extract" || loc.Name == "download" {
		s.handles = append(s.handles, navigation.WindowHandle(loc.Name))
	}
	return nil
}

func (s *ScriptedTransport) SendKeys(ctx context.Context, loc navigation.Locator, text string) error {
	return s.call(loc.Name)
}

func (s *ScriptedTransport) Attribute(ctx context.Context, loc navigation.Locator, name string) (string, error) {
	if err := s.call(loc.Name); err != nil {
		return "", err
	}
	return s.Href, nil
}

func (s *ScriptedTransport) WindowHandles(ctx context.Context) ([]navigation.WindowHandle, error) {
	return append([]navigation.WindowHandle(nil), s.handles...), nil
}

func (s *ScriptedTransport) CurrentWindow(ctx context.Context) (navigation.WindowHandle, error) {
	return s.current, nil
}

func (s *ScriptedTransport) SwitchTo(ctx context.Context, h navigation.WindowHandle) error {
	s.current = h
	return nil
}

func (s *ScriptedTransport) Quit() error {
	s.Quits++
	return s.QuitErr
}

// Factory returns a TransportFactory that always hands out s
func (s *ScriptedTransport) Factory() navigation.TransportFactory {
	return func() navigation.Transport { return s }
}

// PortalTable builds a download for a currency group the way the portal
// lays it out: series codes, then data item labels, then one row per date.
// value returns the text of data row r, item column c.
func PortalTable(currency string, dates []string, value func(r, c int) string) *domain.RawTable {
	labels := config.DataItemLabels(currency)
	header := []string{"系列コード"}
	labelRow := []string{"系列名称"}
	for c, l := range labels {
		header = append(header, fmt.Sprintf("FX%sD%02d", strings.ToUpper(currency)[:2], c+1))
		labelRow = append(labelRow, l)
	}

	rows := [][]string{labelRow}
	for r, d := range dates {
		row := []string{d}
		for c := range labels {
			row = append(row, value(r, c))
		}
		rows = append(rows, row)
	}
	return &domain.RawTable{Header: header, Rows: rows}
}

// PortalCSV renders PortalTable as CSV text
func PortalCSV(currency string, dates []string, value func(r, c int) string) string {
	t := PortalTable(currency, dates, value)
	var sb strings.Builder
	sb.WriteString(strings.Join(t.Header, ",") + "\n")
	for _, row := range t.Rows {
		sb.WriteString(strings.Join(row, ",") + "\n")
	}
	return sb.String()
}
