package rollbar

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"testing"
	"time"

	rollbar "github.com/rollbar/rollbar-go"

	"github.com/kiteco/retriever/kite-golib/envutil"
)

var (
	withPanic   = false
	logDisabled = false
	component   string
	// the same failure at most every 10 minutes; a burst of 5, then one report every 500ms
	reports = newFilter(10*time.Minute, 500*time.Millisecond, 5)
)

func init() {
	// Without this token, reporting is a NOOP, which is the default while developing.
	rollbar.SetToken(os.Getenv("ROLLBAR_TOKEN"))
	rollbar.SetEnvironment(envutil.GetenvDefault("ROLLBAR_ENV", "development"))
	rollbar.SetCodeVersion(os.Getenv("RELEASE"))
}

// SetComponent names the binary in every report
func SetComponent(name string) {
	component = name
}

// Disable rollbar messages
func Disable() {
	rollbar.SetToken("")
	rollbar.SetEnvironment("")
	rollbar.SetEnabled(false)
}

// WithPanic causes all subsequent rollbar calls to panic. The returned function reverts the behavior.
// Intended for use as: defer rollbar.WithPanic(t)() within a test function.
// Note that this should be called within the main goroutine, and isn't thread-safe.
func WithPanic(testing.TB) func() {
	withPanic = true
	return func() {
		withPanic = false
	}
}

// SetLogDisabled sets the status of logging to Golang's log.
func SetLogDisabled(disabled bool) {
	logDisabled = disabled
}

// Wait will block until the queue of errors / messages is empty.
func Wait() {
	rollbar.Wait()
}

// Critical sends a critical error report to Rollbar.
func Critical(err error, data ...interface{}) {
	send(rollbar.CRIT, err, data...)
}

// Error sends an error report to Rollbar. The first data value, typically the identity being
// fetched, keys the report: repeats of the same key are dropped for a while.
func Error(err error, data ...interface{}) {
	send(rollbar.ERR, err, data...)
}

// Warning sends a warning report to Rollbar.
func Warning(err error, data ...interface{}) {
	send(rollbar.WARN, err, data...)
}

// PanicRecovery send a panic report to rollbar
func PanicRecovery(r interface{}, data ...interface{}) {
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, false)
	logPrintf("panic: %s\n%s", r, buf[:n])
	err := fmt.Errorf("panic: %s", r)
	send(rollbar.CRIT, err, data...)
}

// --

func send(level string, err error, data ...interface{}) {
	if withPanic {
		panic(fmt.Sprintf("rollbar [%s]: %v %v", level, err, data))
	}
	if rollbar.Token() == "" {
		// If there is no token, we are most likely in a dev environment, so log the error to help with debugging
		logPrintf("rollbar [%s]: %v %v", level, err, data)
		return
	}

	if !reports.allow(reportKey(err, data)) {
		logPrintln("dropping rollbar event due to filtering")
		return
	}

	extras := map[string]interface{}{
		"component": component,
	}
	for idx, d := range data {
		extras[fmt.Sprintf("data%d", idx)] = d
	}
	skip := 2 // Go up two stack frames to report where the error came from
	rollbar.ErrorWithStackSkipWithExtras(level, err, skip, extras)
}

func reportKey(err error, data []interface{}) string {
	if len(data) > 0 {
		return component + "|" + fmt.Sprint(data[0])
	}
	return component + "|" + err.Error()
}

func logPrintf(format string, v ...interface{}) {
	if !logDisabled {
		log.Printf(format, v...)
	}
}

func logPrintln(v ...interface{}) {
	if !logDisabled {
		log.Println(v...)
	}
}
