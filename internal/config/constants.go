package config

import (
	"time"

	"bojfx/pkg/contracts"
)

// Application constants
const (
	// Application Info
	AppName    = "bojfx"
	AppVersion = contracts.Version

	// PortalURL is the entry page of the BOJ time-series search, preselected
	// on the foreign exchange (daily) menu.
	PortalURL = "http://www.stat-search.boj.or.jp/ssi/cgi-bin/famecgi2?cgi=$nme_a000&lstSelection=FM08"

	// Browser timing
	DefaultElementTimeout = 20 * time.Second
	DefaultWindowTimeout  = 10 * time.Second
	DefaultPollInterval   = 250 * time.Millisecond
	DefaultActionInterval = 300 * time.Millisecond

	// Network
	DefaultHTTPTimeout = 60 * time.Second
	MaxDownloadBytes   = 10 * 1024 * 1024
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogFile   = "logs/bojfx.log"

	// Output
	DefaultOutputDir = "data"
)
