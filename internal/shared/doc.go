// Package shared holds code used across packages that belongs to no single
// pipeline stage.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler for asserting on structured log output
//   - ScriptedTransport, a browser that behaves like the portal
//   - Portal CSV fixtures shaped like real downloads
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    browser := &testutil.ScriptedTransport{Href: srv.URL + "/fm08.csv"}
//	    // ...
//	    testutil.AssertNoErrors(t, logs)
//	}
package shared
