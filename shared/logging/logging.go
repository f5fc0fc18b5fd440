// Package logging configures the logrus logger used across the simulator and
// renders entries as single colored lines.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
)

const (
	format = "2006-01-02 15:04:05.000"
)

var (
	debugColor = color.New(color.FgGreen)
	infoColor  = color.New(color.FgWhite)
	warnColor  = color.New(color.FgBlue)
	errorColor = color.New(color.FgRed)
	fieldColor = color.New(color.FgCyan)
)

var std = New(os.Stderr, log.InfoLevel)

// Formatter writes "time LEVEL message key=value ..." with the level colored
type Formatter struct {
	// DisableTimestamp drops the leading time, useful for golden output in tests
	DisableTimestamp bool
}

func (f *Formatter) Format(e *log.Entry) ([]byte, error) {
	var b bytes.Buffer

	if !f.DisableTimestamp {
		b.WriteString(e.Time.Format(format))
		b.WriteByte(' ')
	}

	b.WriteString(levelColor(e.Level).Sprint(levelTag(e.Level)))
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(fieldColor.Sprint(k))
		fmt.Fprintf(&b, "=%v", e.Data[k])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelTag(l log.Level) string {
	switch l {
	case log.DebugLevel:
		return "DEBUG"
	case log.InfoLevel:
		return "INFO"
	case log.WarnLevel:
		return "WARN"
	case log.ErrorLevel:
		return "ERROR"
	default:
		return strings.ToUpper(l.String())
	}
}

func levelColor(l log.Level) *color.Color {
	switch l {
	case log.DebugLevel:
		return debugColor
	case log.InfoLevel:
		return infoColor
	case log.WarnLevel:
		return warnColor
	default:
		return errorColor
	}
}

// New creates a logger writing colored lines to out
func New(out io.Writer, level log.Level) *log.Logger {
	l := log.New()
	l.Out = out
	l.Level = level
	l.Formatter = &Formatter{}
	return l
}

// Setup parses level ("debug", "info", "warn", "error") and applies it to the
// shared logger.
func Setup(level string) error {
	if level == "" {
		return nil
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	std.Level = lvl
	return nil
}

// Logger returns the shared logger
func Logger() *log.Logger {
	return std
}

func Debugf(msg string, args ...interface{}) {
	std.Debugf(msg, args...)
}

func Infof(msg string, args ...interface{}) {
	std.Infof(msg, args...)
}

func Warningf(msg string, args ...interface{}) {
	std.Warnf(msg, args...)
}

func Errorf(msg string, args ...interface{}) {
	std.Errorf(msg, args...)
}
