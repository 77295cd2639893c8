package sshutils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/crypto/ssh"
)

// TunnelCredentials are the optional credentials for the second hop. Zero
// values mean "not given".
type TunnelCredentials struct {
	Username string
	Password string
	Key      ssh.Signer
}

func (t TunnelCredentials) empty() bool {
	return t.Username == "" && t.Password == "" && t.Key == nil
}

type TunnelAuthKind int

const (
	TunnelAuthNone TunnelAuthKind = iota
	TunnelAuthPassword
	TunnelAuthPublicKey
)

func (k TunnelAuthKind) String() string {
	switch k {
	case TunnelAuthPublicKey:
		return "publickey"
	case TunnelAuthPassword:
		return "password"
	default:
		return "none"
	}
}

// TunnelAuth is the single authentication attempt made against the target.
type TunnelAuth struct {
	Kind     TunnelAuthKind
	Username string
	Password string
	Key      ssh.Signer
}

func (a TunnelAuth) methods() []ssh.AuthMethod {
	switch a.Kind {
	case TunnelAuthPublicKey:
		return []ssh.AuthMethod{ssh.PublicKeys(a.Key)}
	case TunnelAuthPassword:
		return []ssh.AuthMethod{ssh.Password(a.Password)}
	default:
		return nil
	}
}

// SelectTunnelAuth decides how to authenticate on the target. When the
// caller gives no credentials at all, own is used in their place. A key wins
// over a password, and with neither the "none" method is used.
func SelectTunnelAuth(explicit, own TunnelCredentials) TunnelAuth {
	creds := explicit
	if explicit.empty() {
		creds = own
	}
	username := creds.Username
	if username == "" {
		username = own.Username
	}

	switch {
	case creds.Key != nil:
		return TunnelAuth{Kind: TunnelAuthPublicKey, Username: username, Key: creds.Key}
	case creds.Password != "":
		return TunnelAuth{Kind: TunnelAuthPassword, Username: username, Password: creds.Password}
	default:
		return TunnelAuth{Kind: TunnelAuthNone, Username: username}
	}
}

// ExecuteThroughHost runs command on target, reached through this session.
func (c *SSHClient) ExecuteThroughHost(
	target string,
	command string,
	creds TunnelCredentials,
) (*CommandResult, error) {
	ctx := context.Background()
	if c.timeouts.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeouts.CommandTimeout)
		defer cancel()
	}
	return c.ExecuteThroughHostContext(ctx, target, command, creds)
}

func (c *SSHClient) ExecuteThroughHostContext(
	ctx context.Context,
	target string,
	command string,
	creds TunnelCredentials,
) (*CommandResult, error) {
	client, err := c.transport()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	own := TunnelCredentials{Username: c.Username, Password: c.password, Key: c.privateKey}
	c.mu.Unlock()
	auth := SelectTunnelAuth(creds, own)

	addr := net.JoinHostPort(target, strconv.Itoa(DefaultSSHPort))
	c.logger.Debugf("Opening tunnel %s -> %s as '%s' (%s)", c.Address(), addr, auth.Username, auth.Kind)

	conn, err := client.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: tunnel %s -> %s: %w", ErrConnectionFailed, c.Address(), addr, err)
	}
	defer conn.Close()

	tunnel, err := c.dialer.NewClientConn(conn, addr, c.clientConfig(auth.Username, auth.methods()...))
	if err != nil {
		if isAuthFailure(err) {
			return nil, fmt.Errorf("%w: %s@%s: %w", ErrAuthenticationFailed, auth.Username, addr, err)
		}
		return nil, fmt.Errorf("%w: handshake with %s: %w", ErrConnectionFailed, addr, err)
	}
	defer tunnel.Close()

	session, err := tunnel.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open session on %s: %w", addr, err)
	}
	handle, err := openPipes(session)
	if err != nil {
		_ = session.Close()
		return nil, err
	}
	c.logger.Debugf("Executing command: '%s' on %s", command, addr)
	if err := session.Start(command); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to start command on %s: %w", addr, err)
	}

	result, err := c.collect(ctx, handle, false)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("command '%s' on %s timed out: %w", command, addr, err)
		}
		return nil, fmt.Errorf("command '%s' on %s: %w", command, addr, err)
	}
	return result, nil
}
