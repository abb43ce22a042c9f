package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscardDoesNotPanic(t *testing.T) {
	l := Discard()
	l.Info("hello")
	l.Warn("world")
}

func TestGetLoggerCachesByDest(t *testing.T) {
	a, err := GetLogger(OutputStderr.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := GetLogger(OutputStderr.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Error("expected cached logger instance for the same destination")
	}
}

func TestFileLoggerWritesAndReopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "san.log")

	l, err := GetLogger(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Info("first line")

	if err := l.Reopen(); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	l.Info("second line")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected log file to contain data")
	}
}

func TestOutputOptionString(t *testing.T) {
	if OutputStderr.String() != "stderr" || OutputStdout.String() != "stdout" || OutputOff.String() != "off" {
		t.Error("unexpected OutputOption string mapping")
	}
}
