package util

import (
	"io"
	"os"

	"github.com/google/logger"
)

var (
	// These loggers default to stdout/stderr; LogInfoTo/LogErrorTo redirect
	// them once a configuration has been loaded.
	InfoLogger  *logger.Logger = logger.Init("enginecore", false, false, os.Stdout)
	ErrorLogger *logger.Logger = logger.Init("enginecore", false, false, os.Stderr)
)

func LogInfoTo(system bool, w io.Writer) {
	closeAndLogTo(&InfoLogger, system, w)
}

func LogErrorTo(system bool, w io.Writer) {
	closeAndLogTo(&ErrorLogger, system, w)
}

func LogInfoToStdout() {
	closeAndLogTo(&InfoLogger, false, os.Stdout)
}

func LogErrorToStderr() {
	closeAndLogTo(&ErrorLogger, false, os.Stderr)
}

func closeAndLogTo(l **logger.Logger, system bool, w io.Writer) {
	(*l).Close()
	*l = logger.Init("enginecore", false, system, w)
}
