package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogrusTestLogger(t *testing.T) (*LogrusLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.DebugLevel)
	return NewLogrusLogger(logrus.NewEntry(l)), &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogrusLogger_LevelsAndFields(t *testing.T) {
	log, buf := newLogrusTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", "two")
	log.Warn(ctx, "wrn")
	log.Error(ctx, "err", "entry_id", 7, "dangling")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 4)

	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "dbg", lines[0]["msg"])
	assert.Equal(t, float64(1), lines[0]["a"])

	assert.Equal(t, "info", lines[1]["level"])
	assert.Equal(t, "two", lines[1]["b"])

	assert.Equal(t, "warning", lines[2]["level"])

	assert.Equal(t, "error", lines[3]["level"])
	assert.Equal(t, float64(7), lines[3]["entry_id"])
	assert.Equal(t, "dangling", lines[3]["!BADKEY"])
}

func TestLogrusLogger_With_AddsFields(t *testing.T) {
	log, buf := newLogrusTestLogger(t)

	log.With("step", "Transcript", 42, "x").Info(context.Background(), "hello", "k", "v")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "Transcript", lines[0]["step"])
	assert.Equal(t, "x", lines[0]["42"])
	assert.Equal(t, "v", lines[0]["k"])
}

func TestNew_SelectsBackend(t *testing.T) {
	var buf bytes.Buffer

	l := New("text", "warn", &buf)
	_, ok := l.(*LogrusLogger)
	assert.True(t, ok)
	l.Info(context.Background(), "hidden")
	l.Warn(context.Background(), "shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	l = New("json", "debug", &buf)
	_, ok = l.(*SlogLogger)
	assert.True(t, ok)
	l.Debug(context.Background(), "dbg", "a", 1)
	assert.Contains(t, buf.String(), `"msg":"dbg"`)

	buf.Reset()
	l = New("logrus", "bogus", &buf)
	l.Debug(context.Background(), "hidden")
	l.Info(context.Background(), "shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestNewNop_DoesNotPanic(t *testing.T) {
	l := NewNop()
	l.With("a", 1).Error(context.Background(), "nothing")
}
