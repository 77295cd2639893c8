package sshutils

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bacalhau-project/remotectl/pkg/logger"
	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"
)

// ExecuteAsync starts command on a new channel and returns without waiting
// for it to finish.
func (c *SSHClient) ExecuteAsync(command string) (*ExecHandle, error) {
	c.mu.Lock()
	client := c.client
	cmd := c.wrapCommand(command)
	sudo := c.sudoMode
	password := c.password
	c.mu.Unlock()

	if client == nil {
		return nil, fmt.Errorf("%w: %s", ErrClientClosed, c.Address())
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open session on %s: %w", c.Address(), err)
	}
	handle, err := openPipes(session)
	if err != nil {
		_ = session.Close()
		return nil, err
	}

	c.logger.Debugf("Executing command: '%s'", strings.TrimRight(cmd, " \t\r\n"))
	if err := session.Start(cmd); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to start command on %s: %w", c.Address(), err)
	}

	if sudo && password != "" {
		if _, err := io.WriteString(handle.Stdin, password+"\n"); err != nil {
			_ = session.Close()
			return nil, fmt.Errorf("failed to send sudo password: %w", err)
		}
	}
	return handle, nil
}

func openPipes(session SSHSessioner) (*ExecHandle, error) {
	stdin, err := session.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}
	return &ExecHandle{Session: session, Stdin: stdin, Stdout: stdout, Stderr: stderr}, nil
}

// Execute runs command and waits for it, bounded by the client's command
// timeout when one is configured.
func (c *SSHClient) Execute(command string, verbose bool) (*CommandResult, error) {
	ctx, cancel := c.commandContext(context.Background())
	defer cancel()
	return c.ExecuteContext(ctx, command, verbose)
}

// commandContext bounds ctx by the configured command timeout, if any.
func (c *SSHClient) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeouts.CommandTimeout > 0 {
		return context.WithTimeout(ctx, c.timeouts.CommandTimeout)
	}
	return ctx, func() {}
}

func (c *SSHClient) ExecuteContext(
	ctx context.Context,
	command string,
	verbose bool,
) (*CommandResult, error) {
	handle, err := c.ExecuteAsync(command)
	if err != nil {
		return nil, err
	}
	result, err := c.collect(ctx, handle, verbose)
	if err != nil {
		return nil, fmt.Errorf("command '%s' on %s: %w", command, c.Address(), err)
	}
	return result, nil
}

// collect drains both streams, waits for the exit status and closes the
// session. On ctx expiry the session is closed to unblock the readers.
func (c *SSHClient) collect(
	ctx context.Context,
	handle *ExecHandle,
	verbose bool,
) (*CommandResult, error) {
	defer handle.Session.Close()

	result := &CommandResult{}
	done := make(chan error, 1)
	go func() {
		var g errgroup.Group
		g.Go(func() error {
			var err error
			result.Stdout, err = readLines(handle.Stdout)
			return err
		})
		g.Go(func() error {
			var err error
			result.Stderr, err = readLines(handle.Stderr)
			return err
		})
		readErr := g.Wait()

		code, waitErr := exitCode(handle.Session.Wait())
		result.ExitCode = code
		done <- errors.Join(readErr, waitErr)
	}()

	select {
	case <-ctx.Done():
		_ = handle.Session.Signal(ssh.SIGKILL)
		_ = handle.Session.Close()
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, err
		}
	}

	if verbose || c.logger.IsVerbose() {
		for _, line := range result.Stdout {
			c.logger.Info(strings.TrimRight(line, "\r\n"))
		}
		for _, line := range result.Stderr {
			c.logger.Info(strings.TrimRight(line, "\r\n"))
		}
	}
	return result, nil
}

// readLines returns r's content split after each newline, terminators kept.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, nil
			}
			return lines, err
		}
	}
}

// exitStatuser is satisfied by *ssh.ExitError.
type exitStatuser interface {
	ExitStatus() int
}

func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr exitStatuser
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	var missing *ssh.ExitMissingError
	if errors.As(err, &missing) {
		return -1, nil
	}
	return -1, err
}

// ExecuteTogether runs command on every remote concurrently. Results are
// index-aligned with remotes; a remote that failed gets a nil entry and its
// error is included in the joined error.
func ExecuteTogether(remotes []*SSHClient, command string) ([]*CommandResult, error) {
	return ExecuteTogetherContext(context.Background(), remotes, command)
}

func ExecuteTogetherContext(
	ctx context.Context,
	remotes []*SSHClient,
	command string,
) ([]*CommandResult, error) {
	results := make([]*CommandResult, len(remotes))
	errs := make([]error, len(remotes))

	var g errgroup.Group
	for i, remote := range remotes {
		g.Go(func() error {
			logger.RecoverAndLog(func() {
				res, err := remote.ExecuteContext(ctx, command, false)
				if err != nil {
					errs[i] = &RemoteError{Index: i, Remote: remote.String(), Err: err}
					return
				}
				results[i] = res
			})
			return errs[i]
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

// CheckCall fails with a *CommandExecutionError when the exit code is not 0.
func (c *SSHClient) CheckCall(command string, verbose bool) (*CommandResult, error) {
	result, err := c.Execute(command, verbose)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		cmdErr := &CommandExecutionError{
			Command:  command,
			ExitCode: result.ExitCode,
			Stdout:   result.StdoutStr(),
			Stderr:   result.StderrStr(),
		}
		c.logger.Error(cmdErr.Error())
		return result, cmdErr
	}
	return result, nil
}

// CheckStderr is CheckCall that also fails when anything was written to
// stderr.
func (c *SSHClient) CheckStderr(command string, verbose bool) (*CommandResult, error) {
	result, err := c.CheckCall(command, verbose)
	if err != nil {
		return result, err
	}
	if len(result.Stderr) > 0 {
		cmdErr := &CommandExecutionError{
			Command:  command,
			ExitCode: result.ExitCode,
			Stdout:   result.StdoutStr(),
			Stderr:   result.StderrStr(),
			Reason:   "call failed, stderr not empty",
		}
		c.logger.Error(cmdErr.Error())
		return result, cmdErr
	}
	return result, nil
}
