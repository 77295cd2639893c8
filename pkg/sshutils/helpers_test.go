package sshutils

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/bacalhau-project/remotectl/pkg/logger"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

const (
	testHost     = "127.0.0.1"
	testPort     = 22
	testAddr     = "127.0.0.1:22"
	testUsername = "user"
	testPassword = "pass"
)

var errAuthRejected = fmt.Errorf(
	"ssh: handshake failed: ssh: unable to authenticate, attempted methods [none publickey], no supported methods remain",
)

type exitStatusError int

func (e exitStatusError) Error() string   { return fmt.Sprintf("process exited with status %d", int(e)) }
func (e exitStatusError) ExitStatus() int { return int(e) }

// recordingWriteCloser captures whatever is written to a session's stdin.
type recordingWriteCloser struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *recordingWriteCloser) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *recordingWriteCloser) Close() error { return nil }

func (w *recordingWriteCloser) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

type fakeRemote struct {
	dialer  *MockSSHDialer
	client  *MockSSHClient
	sftp    *MockSFTPClient
	log     *logger.TestLogger
	sftpErr error
}

func newFakeRemote(t *testing.T) *fakeRemote {
	f := &fakeRemote{
		dialer: NewMockSSHDialer(),
		client: &MockSSHClient{},
		sftp:   &MockSFTPClient{},
		log:    logger.NewTestLogger(t),
	}
	f.client.On("Close").Return(nil).Maybe()
	f.sftp.On("Close").Return(nil).Maybe()
	return f
}

func (f *fakeRemote) sftpCreator(SSHClienter) (SFTPClienter, error) {
	if f.sftpErr != nil {
		return nil, f.sftpErr
	}
	return f.sftp, nil
}

func (f *fakeRemote) options() []Option {
	return []Option{
		WithDialer(f.dialer),
		WithSFTPClientCreator(f.sftpCreator),
		WithLogger(f.log.Logger),
	}
}

// acceptAnyLogin makes every dial succeed.
func (f *fakeRemote) acceptAnyLogin() {
	f.dialer.On("Dial", "tcp", testAddr, mock.AnythingOfType("*ssh.ClientConfig")).
		Return(f.client, nil)
}

// connectWithPassword returns a client authenticated by password.
func (f *fakeRemote) connectWithPassword(t *testing.T) *SSHClient {
	t.Helper()
	f.acceptAnyLogin()
	c, err := NewSSHClient(testHost, testPort, testUsername, testPassword, nil, f.options()...)
	require.NoError(t, err)
	return c
}

type fakeSession struct {
	*MockSSHSession
	stdin *recordingWriteCloser
}

func newFakeSession(cmd, stdout, stderr string, waitErr error) *fakeSession {
	s := &fakeSession{MockSSHSession: NewMockSSHSession(), stdin: &recordingWriteCloser{}}
	s.On("StdinPipe").Return(s.stdin, nil)
	s.On("StdoutPipe").Return(strings.NewReader(stdout), nil)
	s.On("StderrPipe").Return(strings.NewReader(stderr), nil)
	s.On("Start", cmd).Return(nil)
	s.On("Wait").Return(waitErr)
	s.On("Signal", mock.Anything).Return(nil).Maybe()
	s.On("Close").Return(nil)
	return s
}

// expectCommand queues one session that will see cmd exactly as sent on
// the wire.
func (f *fakeRemote) expectCommand(cmd, stdout, stderr string, waitErr error) *fakeSession {
	s := newFakeSession(cmd, stdout, stderr, waitErr)
	f.client.On("NewSession").Return(s, nil).Once()
	return s
}

// authWith matches a client config offering exactly one method of the given
// kind ("password" or "publickey"), or none when kind is "".
func authWith(kind string) interface{} {
	return mock.MatchedBy(func(cfg *ssh.ClientConfig) bool {
		return offersAuth(cfg, kind)
	})
}

func offersAuth(cfg *ssh.ClientConfig, kind string) bool {
	if kind == "" {
		return len(cfg.Auth) == 0
	}
	if len(cfg.Auth) != 1 {
		return false
	}
	return strings.Contains(strings.ToLower(fmt.Sprintf("%T", cfg.Auth[0])), kind)
}
