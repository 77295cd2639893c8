package sshutils

import (
	"errors"
	"testing"

	"github.com/bacalhau-project/remotectl/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/ssh"
)

func TestNewSSHClientWithPassword(t *testing.T) {
	f := newFakeRemote(t)
	f.dialer.On("Dial", "tcp", testAddr, authWith("password")).Return(f.client, nil).Once()

	c, err := NewSSHClient(testHost, testPort, testUsername, testPassword, nil, f.options()...)
	require.NoError(t, err)

	assert.Equal(t, testHost, c.Host)
	assert.Equal(t, testPort, c.Port)
	assert.Equal(t, testUsername, c.Username)
	assert.Equal(t, testPassword, c.Password())
	assert.Nil(t, c.PrivateKey())
	assert.Empty(t, c.PublicKey())
	assert.False(t, c.SudoMode())
	assert.Equal(t, []string{"Connect to '127.0.0.1:22' as 'user:pass'"}, f.log.GetLogs())
	f.dialer.AssertExpectations(t)
}

func TestNewSSHClientDefaultsPort(t *testing.T) {
	f := newFakeRemote(t)
	f.acceptAnyLogin()

	c, err := NewSSHClient(testHost, 0, testUsername, testPassword, nil, f.options()...)
	require.NoError(t, err)
	assert.Equal(t, DefaultSSHPort, c.Port)
	assert.Equal(t, testAddr, c.Address())
}

func TestNewSSHClientWithKey(t *testing.T) {
	kp := testutil.GenerateTestKeyPair(t)
	f := newFakeRemote(t)
	f.dialer.On("Dial", "tcp", testAddr, authWith("publickey")).Return(f.client, nil).Once()

	c, err := NewSSHClient(testHost, testPort, testUsername, "", []ssh.Signer{kp.Signer}, f.options()...)
	require.NoError(t, err)

	assert.Equal(t, kp.Signer, c.PrivateKey())
	assert.Equal(t, kp.AuthorizedKey, c.PublicKey())
	f.dialer.AssertExpectations(t)
}

func TestNewSSHClientFallsBackThroughKeys(t *testing.T) {
	rejected := testutil.GenerateTestKeyPair(t)
	accepted := testutil.GenerateTestKeyPair(t)
	f := newFakeRemote(t)
	f.dialer.On("Dial", "tcp", testAddr, authWith("publickey")).Return(nil, errAuthRejected).Once()
	f.dialer.On("Dial", "tcp", testAddr, authWith("publickey")).Return(f.client, nil).Once()

	c, err := NewSSHClient(
		testHost, testPort, testUsername, testPassword,
		[]ssh.Signer{rejected.Signer, accepted.Signer},
		f.options()...,
	)
	require.NoError(t, err)

	assert.Equal(t, accepted.Signer, c.PrivateKey())
	assert.Equal(t, accepted.AuthorizedKey, c.PublicKey())
	f.dialer.AssertNumberOfCalls(t, "Dial", 2)
}

func TestNewSSHClientFallsBackToPassword(t *testing.T) {
	kp := testutil.GenerateTestKeyPair(t)
	f := newFakeRemote(t)
	f.dialer.On("Dial", "tcp", testAddr, authWith("publickey")).Return(nil, errAuthRejected).Once()
	f.dialer.On("Dial", "tcp", testAddr, authWith("password")).Return(f.client, nil).Once()

	c, err := NewSSHClient(testHost, testPort, testUsername, testPassword, []ssh.Signer{kp.Signer}, f.options()...)
	require.NoError(t, err)

	assert.Nil(t, c.PrivateKey())
	assert.Empty(t, c.PublicKey())
	f.dialer.AssertExpectations(t)
}

func TestNewSSHClientWithoutCredentialsUsesNoneAuth(t *testing.T) {
	f := newFakeRemote(t)
	f.dialer.On("Dial", "tcp", testAddr, authWith("")).Return(f.client, nil).Once()

	_, err := NewSSHClient(testHost, testPort, testUsername, "", nil, f.options()...)
	require.NoError(t, err)
	f.dialer.AssertExpectations(t)
}

func TestNewSSHClientAuthenticationFailure(t *testing.T) {
	kp := testutil.GenerateTestKeyPair(t)
	f := newFakeRemote(t)
	f.dialer.On("Dial", "tcp", testAddr, mock.Anything).Return(nil, errAuthRejected)

	_, err := NewSSHClient(testHost, testPort, testUsername, "", []ssh.Signer{kp.Signer}, f.options()...)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = NewSSHClient(testHost, testPort, testUsername, testPassword, nil, f.options()...)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestNewSSHClientConnectionFailureStopsKeyLoop(t *testing.T) {
	first := testutil.GenerateTestKeyPair(t)
	second := testutil.GenerateTestKeyPair(t)
	f := newFakeRemote(t)
	f.dialer.On("Dial", "tcp", testAddr, mock.Anything).
		Return(nil, errors.New("dial tcp 127.0.0.1:22: connect: connection refused"))

	_, err := NewSSHClient(
		testHost, testPort, testUsername, testPassword,
		[]ssh.Signer{first.Signer, second.Signer},
		f.options()...,
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.NotErrorIs(t, err, ErrAuthenticationFailed)
	f.dialer.AssertNumberOfCalls(t, "Dial", 1)
}

func TestNewSSHClientSFTPFailureIsNotFatal(t *testing.T) {
	f := newFakeRemote(t)
	f.sftpErr = errors.New("subsystem request failed")
	f.acceptAnyLogin()

	c, err := NewSSHClient(testHost, testPort, testUsername, testPassword, nil, f.options()...)
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t,
		[]string{"SFTP enable failed! SSH only is accessible."},
		f.log.GetLogsAtLevel(zapcore.WarnLevel),
	)
}

func TestSetPasswordReconnects(t *testing.T) {
	f := newFakeRemote(t)
	c := f.connectWithPassword(t)
	f.log.Reset()

	require.NoError(t, c.SetPassword("new_pass"))

	assert.Equal(t, "new_pass", c.Password())
	assert.Equal(t, []string{"Connect to '127.0.0.1:22' as 'user:new_pass'"}, f.log.GetLogs())
	f.dialer.AssertNumberOfCalls(t, "Dial", 2)
	f.client.AssertCalled(t, "Close")
	f.sftp.AssertCalled(t, "Close")
}

func TestSetPasswordKeepsSelectedKey(t *testing.T) {
	kp := testutil.GenerateTestKeyPair(t)
	f := newFakeRemote(t)
	f.acceptAnyLogin()
	c, err := NewSSHClient(testHost, testPort, testUsername, "", []ssh.Signer{kp.Signer}, f.options()...)
	require.NoError(t, err)

	require.NoError(t, c.SetPassword("new_pass"))

	assert.Equal(t, kp.Signer, c.PrivateKey())
	assert.Equal(t, kp.AuthorizedKey, c.PublicKey())
}

func TestReconnect(t *testing.T) {
	f := newFakeRemote(t)
	c := f.connectWithPassword(t)

	require.NoError(t, c.Reconnect())

	f.dialer.AssertNumberOfCalls(t, "Dial", 2)
	f.client.AssertNumberOfCalls(t, "Close", 1)
}

func TestCloseIsIdempotent(t *testing.T) {
	f := newFakeRemote(t)
	c := f.connectWithPassword(t)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	f.client.AssertNumberOfCalls(t, "Close", 1)

	_, err := c.Execute("ls ~", false)
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestIsConnected(t *testing.T) {
	f := newFakeRemote(t)
	c := f.connectWithPassword(t)

	f.client.On("SendRequest", keepAliveRequest, true, []byte(nil)).Return(false, nil, nil).Once()
	assert.True(t, c.IsConnected())

	f.client.On("SendRequest", keepAliveRequest, true, []byte(nil)).
		Return(false, nil, errors.New("EOF")).Once()
	assert.False(t, c.IsConnected())

	require.NoError(t, c.Close())
	assert.False(t, c.IsConnected())
}

func TestString(t *testing.T) {
	f := newFakeRemote(t)
	c := f.connectWithPassword(t)
	assert.Equal(t, "SSHClient(host=127.0.0.1, port=22, user=user)", c.String())
}
