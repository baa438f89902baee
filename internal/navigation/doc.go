// Package navigation drives a browser through the BOJ time-series portal
// until it yields the location of a CSV download.
//
// A Session is a linear state machine over a Transport. Each exported step
// is valid only from the state its predecessor leaves behind; calling one
// out of order fails with ErrOutOfOrder and changes nothing. Windows opened
// by the portal are tracked by role (main, results, download), and waits for
// a new window poll the transport under the driver's window timeout with
// bounded exponential backoff between attempts.
//
// ChromedpTransport is the production Transport. Tests substitute a scripted
// one.
//
//	session := navigation.NewSession(navigation.NewChromedpTransport(), driver)
//	defer session.Close()
//	locator, err := session.Run(ctx, domain.CurrencyUSD, 2020, 2024)
package navigation
