// Package daaplog provides the small level-based logger used throughout the
// DAAP client for lifecycle and teardown diagnostics. Output is formatted as
// RFC5424 syslog messages, matching the structured-logging approach used
// elsewhere in the ingest stack this client was lifted out of.
package daaplog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
)

type Level int

const (
	OFF Level = iota
	DEBUG
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case OFF:
		return `OFF`
	case DEBUG:
		return `DEBUG`
	case INFO:
		return `INFO`
	case WARN:
		return `WARN`
	case ERROR:
		return `ERROR`
	}
	return `UNKNOWN`
}

func (l Level) priority() rfc5424.Priority {
	switch l {
	case DEBUG:
		return rfc5424.User | rfc5424.Debug
	case INFO:
		return rfc5424.User | rfc5424.Info
	case WARN:
		return rfc5424.User | rfc5424.Warning
	case ERROR:
		return rfc5424.User | rfc5424.Error
	}
	return rfc5424.User | rfc5424.Debug
}

const (
	msgID       = `daap`
	maxAppname  = 48
	maxHostname = 255
)

var ErrNotOpen = errors.New("logger is not open")

// Logger writes leveled, RFC5424-framed log lines to an underlying writer.
// The zero value is not usable; use New.
type Logger struct {
	mtx      sync.Mutex
	wtr      io.Writer
	lvl      Level
	hostname string
	appname  string
}

// New creates a Logger at INFO level writing to wtr. A nil wtr defaults to
// os.Stderr, matching the stock behavior callers expect from a client library
// that doesn't want to force a file handle on the caller.
func New(wtr io.Writer) *Logger {
	if wtr == nil {
		wtr = os.Stderr
	}
	host, _ := os.Hostname()
	if len(host) > maxHostname {
		host = host[:maxHostname]
	}
	app := `godaap`
	if len(os.Args) > 0 {
		app = os.Args[0]
		if idx := strings.LastIndexByte(app, '/'); idx >= 0 {
			app = app[idx+1:]
		}
		if len(app) > maxAppname {
			app = app[:maxAppname]
		}
	}
	return &Logger{wtr: wtr, lvl: INFO, hostname: host, appname: app}
}

// NewDiscard creates a logger that drops every line; used as the default
// when a caller passes no Options.Logger.
func NewDiscard() *Logger {
	return New(io.Discard)
}

func (l *Logger) SetLevel(lvl Level) {
	l.mtx.Lock()
	l.lvl = lvl
	l.mtx.Unlock()
}

func (l *Logger) Debugf(f string, args ...interface{}) { l.outputf(DEBUG, f, args...) }
func (l *Logger) Infof(f string, args ...interface{})  { l.outputf(INFO, f, args...) }
func (l *Logger) Warnf(f string, args ...interface{})  { l.outputf(WARN, f, args...) }
func (l *Logger) Errorf(f string, args ...interface{}) { l.outputf(ERROR, f, args...) }

func (l *Logger) outputf(lvl Level, f string, args ...interface{}) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.lvl == OFF || lvl < l.lvl {
		return
	}
	msg := fmt.Sprintf(f, args...)
	b, err := genRFCMessage(time.Now(), lvl.priority(), l.hostname, l.appname, msg)
	if err != nil || len(b) == 0 {
		return
	}
	io.WriteString(l.wtr, string(b))
	io.WriteString(l.wtr, "\n")
}

func genRFCMessage(ts time.Time, prio rfc5424.Priority, hostname, appname, msg string) ([]byte, error) {
	m := rfc5424.Message{
		Priority:  prio,
		Timestamp: ts,
		Hostname:  trimLength(maxHostname, hostname),
		AppName:   trimLength(maxAppname, appname),
		MessageID: msgID,
		Message:   []byte(msg),
	}
	return m.MarshalBinary()
}

func trimLength(max int, s string) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
