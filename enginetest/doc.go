// Package enginetest provides compliance test suites for codexrun engines.
//
// CLI backend compliance tests live in the clitest sub-package.
//
// See enginetest/clitest for usage examples.
package enginetest
