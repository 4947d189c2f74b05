package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelFilteringAndContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Debug("below threshold", "addr", "0x1000")
	require.Empty(t, buf.String(), "Debug is below the default Info floor")

	l.Info("attached", "pid", 1234, "addr", "0x1000")
	out := buf.String()
	require.Contains(t, out, "[INFO ]")
	require.Contains(t, out, "attached")
	require.Contains(t, out, "addr=0x1000")
	require.Contains(t, out, "pid=1234")
}

func TestWithMergesContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf).With("component", "scan")
	l.Warn("region unreadable", "addr", "0x2000")
	out := buf.String()
	require.Contains(t, out, "component=scan")
	require.Contains(t, out, "addr=0x2000")
	require.Contains(t, out, "caller=")
}

func TestNonTerminalWriterNeverEmitsColorCodes(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.Error("boom")
	require.False(t, strings.Contains(buf.String(), "\x1b["), "bytes.Buffer is never a terminal; no ANSI escapes expected")
}
