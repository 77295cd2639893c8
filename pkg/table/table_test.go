package table

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/bacalhau-project/remotectl/pkg/sshutils"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestNewResultTable(t *testing.T) {
	rt := NewResultTable(nil)
	assert.NotNil(t, rt)
	assert.NotNil(t, rt.table)
	assert.Zero(t, rt.Rows())
}

func TestRenderResults(t *testing.T) {
	var buf bytes.Buffer
	rt := NewResultTable(&buf)

	rt.AddResult("10.0.0.1:22", &sshutils.CommandResult{
		ExitCode: 0,
		Stdout:   []string{"hello\n"},
	}, nil)
	rt.AddResult("10.0.0.2:22", &sshutils.CommandResult{
		ExitCode: 2,
		Stderr:   []string{"ls: cannot access 'x'\n"},
	}, nil)
	rt.AddResult("10.0.0.3:22", nil, errors.New("connection refused"))
	rt.Render()

	out := buf.String()
	assert.Equal(t, 3, rt.Rows())
	assert.Contains(t, out, "HOST")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "ls: cannot access 'x'")
	assert.Contains(t, out, "connection refused")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[3], "-")
}

func TestRenderResultsPlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	rt := NewResultTable(&buf)
	rt.AddResult("10.0.0.1:22", &sshutils.CommandResult{ExitCode: 0}, nil)
	rt.AddResult("10.0.0.2:22", &sshutils.CommandResult{ExitCode: 1}, nil)
	rt.Render()

	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Equal(t, lipgloss.Color(okColor), rt.ok.GetForeground())
	assert.Equal(t, lipgloss.Color(failedColor), rt.failed.GetForeground())
	assert.True(t, rt.failed.GetBold())
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "one", firstLine("one"))
	assert.Equal(t, "one ...", firstLine("one\ntwo"))
	assert.Equal(t, "one", firstLine("one\n"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "This is...", truncate("This is a long string", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
}
