// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"testing"
)

// SkipIfNoNetwork skips the test if MISSIV_TEST_SKIP_NETWORK is set.
// Use this for tests that bind a real TCP port, which may not be
// available in sandboxed environments.
func SkipIfNoNetwork(t *testing.T) {
	t.Helper()
	if os.Getenv("MISSIV_TEST_SKIP_NETWORK") != "" {
		t.Skip("skipping network test: MISSIV_TEST_SKIP_NETWORK is set")
	}
}
