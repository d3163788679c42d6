package testlog

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/log"
)

type captureT struct {
	lines []string
}

func (c *captureT) Logf(format string, args ...any) {
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

func (c *captureT) Helper() {}

func TestLogger(t *testing.T) {
	ct := &captureT{}
	l := Logger(ct, log.LevelInfo)
	l.Debug("not shown")
	l.Info("hello", "a", 1)
	l.New("stage", "libraries").Warn("child")

	require.Len(t, ct.lines, 2)
	require.True(t, strings.Contains(ct.lines[0], "hello"))
	require.True(t, strings.Contains(ct.lines[0], "a=1"))
	require.True(t, strings.Contains(ct.lines[1], "stage=libraries"))
}
