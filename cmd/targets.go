package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/bacalhau-project/remotectl/pkg/config"
	"github.com/bacalhau-project/remotectl/pkg/logger"
	"github.com/bacalhau-project/remotectl/pkg/sshutils"
	"golang.org/x/crypto/ssh"
)

// ExitError carries a remote exit code out to main.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("remote command exited with code %d", e.Code)
}

// target is a resolved host, plus the bastion it is reached through when it
// has one.
type target struct {
	host config.HostConfig
	jump *config.HostConfig
}

func (t target) String() string {
	label := t.host.Name
	if label == "" {
		label = net.JoinHostPort(t.host.Host, strconv.Itoa(t.host.Port))
	}
	if t.jump != nil {
		return t.jump.Host + "->" + label
	}
	return label
}

// parseHostArg splits [user@]host[:port].
func parseHostArg(arg string) (config.HostConfig, error) {
	var h config.HostConfig
	rest := arg
	if user, host, ok := strings.Cut(arg, "@"); ok {
		h.Username = user
		rest = host
	}

	if host, port, err := net.SplitHostPort(rest); err == nil {
		p, err := strconv.Atoi(port)
		if err != nil || p < 1 || p > 65535 {
			return h, fmt.Errorf("invalid port in host %q", arg)
		}
		h.Host, h.Port = host, p
	} else {
		h.Host = rest
	}

	if h.Host == "" {
		return h, fmt.Errorf("host %q has no address", arg)
	}
	return h, nil
}

// resolveTargets turns --host values into connection settings. A value that
// names an inventory host uses that entry; with no --host at all every
// inventory host is targeted.
func (o *rootOptions) resolveTargets() ([]target, error) {
	var hosts []config.HostConfig
	switch {
	case len(o.hosts) > 0:
		for _, arg := range o.hosts {
			if o.inv != nil {
				if h, ok := o.inv.Lookup(arg); ok {
					hosts = append(hosts, h)
					continue
				}
			}
			h, err := parseHostArg(arg)
			if err != nil {
				return nil, err
			}
			hosts = append(hosts, h)
		}
	case o.inv != nil && len(o.inv.Hosts) > 0:
		hosts = o.inv.Hosts
	default:
		return nil, errors.New("no hosts given: pass --host or an inventory")
	}

	targets := make([]target, 0, len(hosts))
	for _, h := range hosts {
		t := target{host: o.withFlagCredentials(h).WithDefaults(o.cfg.SSH)}
		if h.Jump != "" {
			jump, _ := o.inv.Lookup(h.Jump)
			jump = jump.WithDefaults(o.cfg.SSH)
			t.jump = &jump
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func (o *rootOptions) withFlagCredentials(h config.HostConfig) config.HostConfig {
	if h.Password == "" {
		h.Password = o.password
	}
	if len(o.keys) > 0 {
		h.PrivateKeyPaths = append(append([]string{}, h.PrivateKeyPaths...), o.keys...)
	}
	h.UseAgent = h.UseAgent || o.useAgent
	return h
}

// signers loads the host's key files and, when asked, the agent's keys. The
// returned func releases the agent connection.
func signers(h config.HostConfig) ([]ssh.Signer, func(), error) {
	keys, err := h.Signers()
	if err != nil {
		return nil, nil, err
	}
	if !h.UseAgent {
		return keys, func() {}, nil
	}
	agentKeys, closeAgent, err := sshutils.AgentSigners()
	if err != nil {
		return nil, nil, err
	}
	return append(keys, agentKeys...), func() { _ = closeAgent() }, nil
}

// dial opens a session to h. The returned func closes it.
func (o *rootOptions) dial(ctx context.Context, h config.HostConfig) (*sshutils.SSHClient, func(), error) {
	l := logger.FromContext(ctx)
	keys, release, err := signers(h)
	if err != nil {
		return nil, nil, err
	}

	opts := []sshutils.Option{
		sshutils.WithTimeouts(o.cfg.SSH.Timeouts()),
		sshutils.WithLogger(l),
	}

	var client *sshutils.SSHClient
	if o.wait {
		client, err = sshutils.SSHWaiterFunc(ctx, sshutils.ConnectParams{
			Host:        h.Host,
			Port:        h.Port,
			Username:    h.Username,
			Password:    h.Password,
			PrivateKeys: keys,
			Options:     opts,
		}, o.cfg.SSH.RetryAttempts, o.cfg.SSH.RetryDelay)
	} else {
		client, err = sshutils.NewSSHClientFunc(h.Host, h.Port, h.Username, h.Password, keys, opts...)
	}
	if err != nil {
		release()
		return nil, nil, err
	}

	if h.Sudo {
		client.SetSudoMode(true)
	}
	return client, func() {
		if err := client.Close(); err != nil {
			l.Debugf("Closing %s: %v", client, err)
		}
		release()
	}, nil
}

// tunnelCredentials picks what the bastion presents to t. Only the first key
// is offered through a tunnel. The returned func must run after the
// handshake.
func tunnelCredentials(t target) (sshutils.TunnelCredentials, func(), error) {
	creds := sshutils.TunnelCredentials{Username: t.host.Username, Password: t.host.Password}
	keys, release, err := signers(t.host)
	if err != nil {
		return creds, nil, err
	}
	if len(keys) > 0 {
		creds.Key = keys[0]
	}
	return creds, release, nil
}

// run executes command on t, through its bastion when it has one.
func (o *rootOptions) run(ctx context.Context, t target, command string, check checkMode) (*sshutils.CommandResult, error) {
	if t.jump != nil {
		return o.runThroughJump(ctx, t, command, check)
	}

	client, done, err := o.dial(ctx, t.host)
	if err != nil {
		return nil, err
	}
	defer done()

	switch check {
	case checkStderrMode:
		return client.CheckStderr(command, o.verbose)
	case checkExit:
		return client.CheckCall(command, o.verbose)
	default:
		return client.ExecuteContext(ctx, command, o.verbose)
	}
}

func (o *rootOptions) runThroughJump(
	ctx context.Context,
	t target,
	command string,
	check checkMode,
) (*sshutils.CommandResult, error) {
	l := logger.FromContext(ctx)
	if t.host.Sudo {
		return nil, fmt.Errorf("%s: sudo is not available through a jump host", t)
	}
	if t.host.Port != sshutils.DefaultSSHPort {
		l.Warnf("%s: jump hosts always reach port %d", t, sshutils.DefaultSSHPort)
	}

	bastion, done, err := o.dial(ctx, *t.jump)
	if err != nil {
		return nil, err
	}
	defer done()

	creds, release, err := tunnelCredentials(t)
	if err != nil {
		return nil, err
	}
	defer release()
	result, err := bastion.ExecuteThroughHostContext(ctx, t.host.Host, command, creds)
	if err != nil {
		return nil, err
	}
	return result, check.verify(command, result)
}

type checkMode int

const (
	checkNone checkMode = iota
	checkExit
	checkStderrMode
)

// verify applies the same rules as CheckCall and CheckStderr to a result
// that was collected some other way.
func (m checkMode) verify(command string, result *sshutils.CommandResult) error {
	if m == checkNone {
		return nil
	}
	cmdErr := &sshutils.CommandExecutionError{
		Command:  command,
		ExitCode: result.ExitCode,
		Stdout:   result.StdoutStr(),
		Stderr:   result.StderrStr(),
	}
	if result.ExitCode != 0 {
		return cmdErr
	}
	if m == checkStderrMode && len(result.Stderr) > 0 {
		cmdErr.Reason = "call failed, stderr not empty"
		return cmdErr
	}
	return nil
}
