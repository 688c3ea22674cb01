package util

import (
	"os"
	"runtime/pprof"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/go-common/logger"
)

// exitPanic is the exit code of an unrecovered panic.
const exitPanic = 2

// The call stack here is usually:
// - panicError
// - RecoverPanic or PanicError
// - panic()
// so both should pop three frames.
var depth = 3

// RecoverPanic recovers from a panic and logs the error along with the current goroutines before exiting.
func RecoverPanic(logger logger.Logger) {
	if r := recover(); r != nil {
		v := panicError(depth, r)
		var str strings.Builder
		pprof.Lookup("goroutine").WriteTo(&str, 2)
		logger.Error("a panic has occurred: %+v\ncurrent goroutines:\n\n%s", v, str.String())
		os.Exit(exitPanic)
	}
}

// PanicError converts a value returned by recover into an error carrying the stack of the panic. It must be
// called directly from the deferred function.
func PanicError(r any) error {
	return panicError(depth, r)
}

func panicError(depth int, r any) error {
	if err, ok := r.(error); ok {
		return errors.WithStackDepth(err, depth+1)
	}
	return errors.NewWithDepthf(depth+1, "panic: %v", r)
}
