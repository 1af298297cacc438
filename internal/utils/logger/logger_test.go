package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := color.Output
	SetOutput(buf)
	t.Cleanup(func() { SetOutput(prev) })
	return buf
}

func TestErrorWrapsAndLogs(t *testing.T) {
	buf := capture(t)
	cause := errors.New("connection refused")

	err := New("DB").Error("connecting to %s", cause, "postgres")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connecting to postgres: connection refused", err.Error())
	line := buf.String()
	assert.Contains(t, line, "ERROR")
	assert.Contains(t, line, "| DB |")
	assert.Contains(t, line, "logger_test.go")
}

func TestLevels(t *testing.T) {
	buf := capture(t)
	l := New("API")
	l.Info("listening on %d", 8080)
	l.Success("ready")
	l.Warn("slow")

	out := buf.String()
	for _, level := range []string{"INFO", "SUCCESS", "WARN"} {
		assert.Contains(t, out, "| "+level+" |")
	}
	assert.Contains(t, out, "listening on 8080")
	assert.Equal(t, "API", l.Service())
}

func TestDebugToggle(t *testing.T) {
	buf := capture(t)
	l := New("X")

	SetDebug(false)
	l.Debug("hidden")
	SetDebug(true)
	l.Debug("shown")

	assert.False(t, strings.Contains(buf.String(), "hidden"))
	assert.Contains(t, buf.String(), "shown")
}
