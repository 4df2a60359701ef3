// Package logger provides the minimal logging shim used across samlvalidate.
//
// It mirrors the interface the teacher package already referenced
// (github.com/insaplace/saml/logger) from samlsp/fetch_metadata.go, so the
// validator and its supporting packages can log through an injected
// implementation instead of the standard library's global logger.
package logger

import (
	"log"
	"os"
)

// Interface is satisfied by *log.Logger and by any test double that wants
// to capture validator diagnostics.
type Interface interface {
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

// DefaultLogger writes to stderr with a "samlvalidate: " prefix, exactly the
// way the teacher's package-level DefaultLogger behaves.
var DefaultLogger Interface = log.New(os.Stderr, "samlvalidate: ", log.LstdFlags)
