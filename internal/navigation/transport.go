package navigation

import (
	"context"
	"errors"
	"fmt"

	"bojfx/pkg/contracts/domain"
)

// Strategy selects how a Locator is resolved on the page
type Strategy int

const (
	ByXPath Strategy = iota
	ByID
	ByClass
	ByCSS
)

func (s Strategy) String() string {
	switch s {
	case ByXPath:
		return "xpath"
	case ByID:
		return "id"
	case ByClass:
		return "class"
	case ByCSS:
		return "css"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Locator identifies one element of the portal. Name is used in errors and
// logs only.
type Locator struct {
	Name  string
	By    Strategy
	Value string
}

func (l Locator) String() string {
	return fmt.Sprintf("%s(%s=%s)", l.Name, l.By, l.Value)
}

// WindowHandle is a transport-specific browser window identifier
type WindowHandle string

// ErrElementNotFound is wrapped by transports when a locator matches nothing
var ErrElementNotFound = errors.New("element not found")

// Transport is the browser a Session drives. Implementations need not be
// safe for concurrent use; a Session calls them from one goroutine.
type Transport interface {
	// Launch starts the browser with a single window.
	Launch(ctx context.Context, cfg domain.DriverConfig) error
	// Navigate loads url in the current window.
	Navigate(ctx context.Context, url string) error
	// Click clicks the element.
	Click(ctx context.Context, loc Locator) error
	// SendKeys replaces the element's value with text.
	SendKeys(ctx context.Context, loc Locator, text string) error
	// Attribute reads an attribute of the element.
	Attribute(ctx context.Context, loc Locator, name string) (string, error)
	// WindowHandles lists every open window.
	WindowHandles(ctx context.Context) ([]WindowHandle, error)
	// CurrentWindow returns the window commands are sent to.
	CurrentWindow(ctx context.Context) (WindowHandle, error)
	// SwitchTo makes h the current window.
	SwitchTo(ctx context.Context, h WindowHandle) error
	// Quit closes the browser. It must be safe to call before Launch and
	// more than once.
	Quit() error
}

// TransportFactory builds a fresh Transport for one session
type TransportFactory func() Transport
