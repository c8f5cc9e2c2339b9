package kitelog

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
)

var (
	release = os.Getenv("RELEASE")
	host    = hostname()

	prefix = fmt.Sprintf("[release=%s host=%s] ", release, host)
	flags  = log.LstdFlags | log.Lshortfile | log.Lmicroseconds
)

func init() {
	// for clients still using the standard log package
	log.SetPrefix(prefix)
	log.SetFlags(flags)
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// Basic prefixes the log line with the release & host identifiers
var Basic = &Logger{
	Default:   log.New(os.Stderr, prefix, flags),
	Durations: &Durations{},
}

// Discard drops everything; useful in tests
var Discard = &Logger{
	Default:   log.New(ioutil.Discard, "", 0),
	Durations: &Durations{},
}

// NewForComponent creates a logger whose lines are prefixed with the release, host and component name,
// e.g. "[release=r12 host=build-3 component=warden] ".
func NewForComponent(component string) *Logger {
	p := fmt.Sprintf("[release=%s host=%s component=%s] ", release, host, component)
	return &Logger{
		Default:   log.New(os.Stderr, p, flags),
		Durations: &Durations{},
	}
}

// Logger encapsulates multiple logging handlers
type Logger struct {
	Default   *log.Logger
	Durations *Durations
}

// Interface encapsulates the relevant methods of log.Logger
type Interface interface {
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

// Printf implements Interface
func (l *Logger) Printf(format string, v ...interface{}) {
	l.Default.Output(2, fmt.Sprintf(format, v...))
}

// Println implements Interface
func (l *Logger) Println(v ...interface{}) {
	l.Default.Output(2, fmt.Sprintln(v...))
}
