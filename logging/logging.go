// Package logging wraps logrus the way go-guerrilla's log package does:
// a cached, hook-based Logger keyed on its destination, with Reopen()
// support for external log rotation. The dashboard hook that teacher
// wires in has no equivalent here (this product has no dashboard); the
// LogrusHook, OutputOption enum and buffered file writer are carried
// over unchanged.
package logging

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the subset of logrus.FieldLogger this product's packages
// actually call, plus the rotation/inspection operations go-guerrilla's
// Logger interface adds on top.
type Logger interface {
	WithField(key string, value interface{}) *logrus.Entry
	WithFields(fields logrus.Fields) *logrus.Entry
	WithError(err error) *logrus.Entry

	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	Reopen() error
	GetLogDest() string
	SetLevel(level string)
	GetLevel() string
	IsDebug() bool
}

// HookedLogger implements Logger, holding a *logrus.Logger that writes
// through a LogrusHook instead of its own Out.
type HookedLogger struct {
	*logrus.Logger
	h *LogrusHook
}

type loggerCache map[string]Logger

var loggers struct {
	sync.Mutex
	cache loggerCache
}

// GetLogger returns the (possibly cached) Logger writing to dest, which
// may be a file path or one of "stdout", "stderr", "off". Subsequent
// calls with the same dest return the cached instance. If the hook
// cannot be set up, the returned Logger still works, logging to stderr,
// and the error is returned alongside it.
func GetLogger(dest string) (Logger, error) {
	loggers.Lock()
	defer loggers.Unlock()
	if loggers.cache == nil {
		loggers.cache = make(loggerCache, 1)
	} else if l, ok := loggers.cache[dest]; ok {
		return l, nil
	}

	base := logrus.New()
	base.SetOutput(io.Discard)

	l := &HookedLogger{Logger: base}
	loggers.cache[dest] = l

	hook, err := NewLogrusHook(dest)
	if err != nil {
		base.SetOutput(os.Stderr)
		return l, err
	}
	base.AddHook(hook)
	l.h = hook
	return l, nil
}

// Discard returns a Logger that drops everything. Useful as a safe
// default for callers that don't care about observability (tests, a
// dispatcher built without an explicit logger).
func Discard() Logger {
	l, _ := GetLogger(OutputOff.String())
	return l
}

func (l *HookedLogger) Reopen() error {
	if l.h == nil {
		return nil
	}
	return l.h.Reopen()
}

func (l *HookedLogger) GetLogDest() string {
	if l.h == nil {
		return ""
	}
	return l.h.GetLogDest()
}

func (l *HookedLogger) SetLevel(level string) {
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.Logger.SetLevel(lvl)
	}
}

func (l *HookedLogger) GetLevel() string {
	return l.Logger.GetLevel().String()
}

func (l *HookedLogger) IsDebug() bool {
	return l.Logger.GetLevel() == logrus.DebugLevel
}

// OutputOption names the non-file destinations GetLogger accepts.
type OutputOption int

const (
	OutputStderr OutputOption = 1 + iota
	OutputStdout
	OutputOff
)

func (o OutputOption) String() string {
	switch o {
	case OutputStderr:
		return "stderr"
	case OutputStdout:
		return "stdout"
	case OutputOff:
		return "off"
	default:
		return ""
	}
}

// LogrusHook writes formatted log lines to dest, buffering file writes
// and disabling color output whenever it isn't a terminal.
type LogrusHook struct {
	mu    sync.Mutex
	w     io.Writer
	fd    *os.File
	fname string
	plain *logrus.TextFormatter
}

// NewLogrusHook builds a hook writing to dest: "stderr", "stdout", "off",
// or a file path (created if missing, appended to if present).
func NewLogrusHook(dest string) (*LogrusHook, error) {
	hook := &LogrusHook{fname: dest}
	return hook, hook.setup(dest)
}

func (hook *LogrusHook) setup(dest string) error {
	switch dest {
	case "", OutputStderr.String():
		hook.w = os.Stderr
		return nil
	case OutputStdout.String():
		hook.w = os.Stdout
		return nil
	case OutputOff.String():
		hook.w = io.Discard
		return nil
	}
	if _, err := os.Stat(dest); err == nil {
		return hook.openAppend(dest)
	}
	return hook.openCreate(dest)
}

func (hook *LogrusHook) openAppend(dest string) error {
	fd, err := os.OpenFile(dest, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		hook.w = os.Stderr
		hook.fd = nil
		return err
	}
	hook.w = bufio.NewWriter(fd)
	hook.fd = fd
	hook.plain = &logrus.TextFormatter{DisableColors: true}
	return nil
}

func (hook *LogrusHook) openCreate(dest string) error {
	fd, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		hook.w = os.Stderr
		hook.fd = nil
		return err
	}
	hook.w = bufio.NewWriter(fd)
	hook.fd = fd
	hook.plain = &logrus.TextFormatter{DisableColors: true}
	return nil
}

// Fire implements logrus.Hook.
func (hook *LogrusHook) Fire(entry *logrus.Entry) error {
	hook.mu.Lock()
	defer hook.mu.Unlock()

	if hook.fd != nil {
		old := entry.Logger.Formatter
		entry.Logger.Formatter = hook.plain
		defer func() { entry.Logger.Formatter = old }()
	}
	line, err := entry.String()
	if err != nil {
		return err
	}
	if _, err := io.WriteString(hook.w, line); err != nil {
		return err
	}
	if wb, ok := hook.w.(*bufio.Writer); ok {
		if err := wb.Flush(); err != nil {
			return err
		}
		if hook.fd != nil {
			return hook.fd.Sync()
		}
	}
	return nil
}

// Levels implements logrus.Hook.
func (hook *LogrusHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// GetLogDest returns the destination this hook was built with.
func (hook *LogrusHook) GetLogDest() string {
	hook.mu.Lock()
	defer hook.mu.Unlock()
	return hook.fname
}

// Reopen closes and reopens the log file, for use with external log
// rotation (logrotate(8) et al). A no-op for the non-file destinations.
func (hook *LogrusHook) Reopen() error {
	hook.mu.Lock()
	defer hook.mu.Unlock()
	if hook.fd == nil {
		return nil
	}
	if err := hook.fd.Close(); err != nil {
		return err
	}
	if _, err := os.Stat(hook.fname); err != nil {
		return hook.openCreate(hook.fname)
	}
	return hook.openAppend(hook.fname)
}
