package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	require.Error(t, err)
}

func TestNewWithFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "logs", "holdings.log")

	l, err := New(Options{Level: "debug", Format: "json", OutputFile: p})
	require.NoError(t, err)

	l.Info("file output", zap.String("symbol", "SCHD"))
	_ = l.Sync()

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Contains(t, string(b), `"symbol":"SCHD"`)
}

func TestSugar(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	Sugar(zap.New(core)).Logf("%s: page %d of %d", "SCHD", 1, 2)

	require.Equal(t, 1, logs.Len())
	require.Equal(t, "SCHD: page 1 of 2", logs.All()[0].Message)
}

func TestWarnf(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	l := Sugar(zap.New(core))

	l.Logf("SCHD: 100 holdings retrieved")
	Warnf(l, "%s not retrieved: %v", "BAD", "timeout")

	require.Equal(t, 1, logs.Len())
	require.Equal(t, zap.WarnLevel, logs.All()[0].Level)
	require.Equal(t, "BAD not retrieved: timeout", logs.All()[0].Message)
}

type plainLogger struct {
	lines []string
}

func (p *plainLogger) Logf(format string, v ...interface{}) {
	p.lines = append(p.lines, fmt.Sprintf(format, v...))
}

func TestWarnfFallsBackToLogf(t *testing.T) {
	p := &plainLogger{}
	Warnf(p, "%s not retrieved", "BAD")
	Warnf(nil, "ignored")
	require.Equal(t, []string{"BAD not retrieved"}, p.lines)
}

func TestNop(t *testing.T) {
	Nop.Logf("ignored %d", 1)
}
