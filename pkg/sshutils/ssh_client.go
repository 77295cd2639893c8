package sshutils

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/bacalhau-project/remotectl/pkg/logger"
	"golang.org/x/crypto/ssh"
)

var NewSSHClientFunc = NewSSHClient

// SSHClient is an authenticated session to one remote machine. It owns the
// transport, an optional cached SFTP sub-session and the sudo flag used when
// wrapping commands.
type SSHClient struct {
	Host        string
	Port        int
	Username    string
	PrivateKeys []ssh.Signer

	password   string
	privateKey ssh.Signer
	publicKey  string
	sudoMode   bool

	client SSHClienter
	sftp   SFTPClienter

	dialer      SSHDialer
	sftpCreator SFTPClientCreator
	timeouts    TimeoutConfig
	logger      *logger.Logger

	// mu guards the transport, the cached SFTP handle and sudoMode.
	mu sync.Mutex
}

type Option func(*SSHClient)

func WithDialer(d SSHDialer) Option {
	return func(c *SSHClient) { c.dialer = d }
}

func WithSFTPClientCreator(f SFTPClientCreator) Option {
	return func(c *SSHClient) { c.sftpCreator = f }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *SSHClient) { c.logger = l }
}

func WithTimeouts(t TimeoutConfig) Option {
	return func(c *SSHClient) { c.timeouts = t }
}

// NewSSHClient connects to host and returns the authenticated session.
// Keys are tried in order before the password; a port of 0 means 22.
func NewSSHClient(
	host string,
	port int,
	username string,
	password string,
	privateKeys []ssh.Signer,
	opts ...Option,
) (*SSHClient, error) {
	if port == 0 {
		port = DefaultSSHPort
	}
	c := &SSHClient{
		Host:        host,
		Port:        port,
		Username:    username,
		PrivateKeys: privateKeys,
		password:    password,
		dialer:      SSHDialerFunc(),
		sftpCreator: NewSFTPClient,
		timeouts:    DefaultTimeoutConfig(),
		logger:      logger.Get(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *SSHClient) String() string {
	return fmt.Sprintf("SSHClient(host=%s, port=%d, user=%s)", c.Host, c.Port, c.Username)
}

func (c *SSHClient) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *SSHClient) Password() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.password
}

// PrivateKey returns the key that authenticated the session, or nil when the
// session was established another way.
func (c *SSHClient) PrivateKey() ssh.Signer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.privateKey
}

// PublicKey returns the authorized_keys form of PrivateKey, or "".
func (c *SSHClient) PublicKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publicKey
}

// SetPassword replaces the password and reconnects with it. The selected
// key, if any, is kept.
func (c *SSHClient) SetPassword(password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.password = password
	c.closeLocked()
	return c.connect()
}

func (c *SSHClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return c.connect()
}

func (c *SSHClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *SSHClient) closeLocked() error {
	var errs []error
	if c.sftp != nil {
		errs = append(errs, c.sftp.Close())
		c.sftp = nil
	}
	if c.client != nil {
		errs = append(errs, c.client.Close())
		c.client = nil
	}
	return errors.Join(errs...)
}

func (c *SSHClient) transport() (SSHClienter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, fmt.Errorf("%w: %s", ErrClientClosed, c.Address())
	}
	return c.client, nil
}

func (c *SSHClient) clientConfig(username string, auth ...ssh.AuthMethod) *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User:            username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		Timeout:         c.timeouts.DialTimeout,
	}
}

// connect must be called with c.mu held.
func (c *SSHClient) connect() error {
	c.logger.Debugf("Connect to '%s:%d' as '%s:%s'", c.Host, c.Port, c.Username, c.password)

	candidates := c.PrivateKeys
	if c.privateKey != nil {
		candidates = []ssh.Signer{c.privateKey}
	}

	var lastErr error
	for _, key := range candidates {
		client, err := c.dialer.Dial("tcp", c.Address(), c.clientConfig(c.Username, ssh.PublicKeys(key)))
		if err == nil {
			c.client = client
			c.privateKey = key
			c.publicKey = PublicKeyString(key)
			c.openSFTP()
			return nil
		}
		if !isAuthFailure(err) {
			return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, c.Address(), err)
		}
		c.logger.Debugf("Key %s rejected by %s", ssh.FingerprintSHA256(key.PublicKey()), c.Address())
		lastErr = err
	}

	var auth []ssh.AuthMethod
	switch {
	case c.password != "":
		auth = []ssh.AuthMethod{ssh.Password(c.password)}
	case len(candidates) > 0:
		return fmt.Errorf("%w: %s@%s: %w", ErrAuthenticationFailed, c.Username, c.Address(), lastErr)
	}

	client, err := c.dialer.Dial("tcp", c.Address(), c.clientConfig(c.Username, auth...))
	if err != nil {
		if isAuthFailure(err) {
			return fmt.Errorf("%w: %s@%s: %w", ErrAuthenticationFailed, c.Username, c.Address(), err)
		}
		return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, c.Address(), err)
	}
	c.client = client
	c.openSFTP()
	return nil
}

// openSFTP must be called with c.mu held.
func (c *SSHClient) openSFTP() {
	s, err := c.sftpCreator(c.client)
	if err != nil {
		c.logger.Warn("SFTP enable failed! SSH only is accessible.")
		c.logger.Debugf("SFTP error on %s: %v", c.Address(), err)
		c.sftp = nil
		return
	}
	c.sftp = s
}
