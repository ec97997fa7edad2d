// Package clitest provides a compliance test suite for [cli.Backend]
// implementations.
//
// Test authors call [RunBackendTests] with a factory function that returns
// the implementation under test. The suite checks structural invariants
// (determinism, stdin-only prompt), token ordering (resume before images),
// argument safety (null bytes rejected, secrets kept out of argv) and the
// credential environment.
//
// Example usage in a backend test file:
//
//	package mybackend_test
//
//	import (
//	    "testing"
//	    "github.com/dmora/codexrun/engine/cli"
//	    "github.com/dmora/codexrun/engine/cli/mybackend"
//	    "github.com/dmora/codexrun/enginetest/clitest"
//	)
//
//	func TestCompliance(t *testing.T) {
//	    clitest.RunBackendTests(t, func() cli.Backend {
//	        return mybackend.New()
//	    })
//	}
package clitest
