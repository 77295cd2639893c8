package sshutils

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuthenticationFailed = errors.New("ssh authentication failed")
	ErrConnectionFailed     = errors.New("ssh connection failed")
	ErrSFTPUnavailable      = errors.New("sftp session unavailable")
	ErrCommandFailed        = errors.New("remote command failed")
	ErrClientClosed         = errors.New("ssh client is closed")
)

// CommandExecutionError is returned by CheckCall and CheckStderr.
type CommandExecutionError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Reason   string
}

func (e *CommandExecutionError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = fmt.Sprintf("returned exit code %d while expected 0", e.ExitCode)
	}
	return fmt.Sprintf(
		"'%s' %s\n\tSTDOUT:\n%s\n\tSTDERR:\n%s",
		strings.TrimSpace(e.Command),
		reason,
		e.Stdout,
		e.Stderr,
	)
}

func (e *CommandExecutionError) Is(target error) bool {
	return target == ErrCommandFailed
}

// RemoteError ties a failure from ExecuteTogether to the remote it came from.
type RemoteError struct {
	Index  int
	Remote string
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Remote, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// RemoteErrors splits a joined ExecuteTogether error back into its parts.
func RemoteErrors(err error) []*RemoteError {
	var out []*RemoteError
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			out = append(out, RemoteErrors(e)...)
		}
		return out
	}
	var re *RemoteError
	if errors.As(err, &re) {
		out = append(out, re)
	}
	return out
}

// isAuthFailure reports whether err came from the server rejecting our
// credentials rather than from the network.
func isAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthenticationFailed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain")
}
