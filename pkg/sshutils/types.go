package sshutils

import (
	"io"
	"strings"
	"time"
)

type TimeoutConfig struct {
	DialTimeout    time.Duration
	CommandTimeout time.Duration
	SFTPTimeout    time.Duration
}

// DefaultTimeoutConfig returns the default timeout configuration
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		DialTimeout:    SSHDialTimeout,
		CommandTimeout: SSHCommandTimeout,
		SFTPTimeout:    SFTPTimeout,
	}
}

// CommandResult holds the outcome of a finished remote command. Stdout and
// Stderr keep the raw lines, terminators included, in arrival order.
type CommandResult struct {
	ExitCode int
	Stdout   []string
	Stderr   []string
}

func (r *CommandResult) StdoutStr() string {
	return strings.TrimSpace(strings.Join(r.Stdout, ""))
}

func (r *CommandResult) StderrStr() string {
	return strings.TrimSpace(strings.Join(r.Stderr, ""))
}

// ExecHandle is a started command. The caller drains the streams and closes
// the session.
type ExecHandle struct {
	Session SSHSessioner
	Stdin   io.WriteCloser
	Stdout  io.Reader
	Stderr  io.Reader
}

func (h *ExecHandle) Close() error {
	return h.Session.Close()
}
