// Package testutil holds helpers shared by package tests.
package testutil

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

func init() {
	logrus.SetLevel(logrus.TraceLevel)
	if !verboseTestRun() {
		logrus.SetOutput(io.Discard)
	}
}

// verboseTestRun is a flag-free check for -test.v, since init runs before
// the testing package parses flags.
func verboseTestRun() bool {
	for _, arg := range os.Args[1:] {
		if arg == "-test.v" || strings.HasPrefix(arg, "-test.v=") && arg != "-test.v=false" {
			return true
		}
	}
	return false
}

// DisableLogging discards standard logger output until the returned func is
// called.
func DisableLogging() (reset func()) {
	logger := logrus.StandardLogger()
	out := logger.Out
	logger.SetOutput(io.Discard)
	return func() {
		logger.SetOutput(out)
	}
}
