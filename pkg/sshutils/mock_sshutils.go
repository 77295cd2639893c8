package sshutils

import (
	"io"
	"net"
	"os"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/ssh"
)

// MockSSHDialer is a mock implementation of SSHDialer
type MockSSHDialer struct {
	mock.Mock
}

func NewMockSSHDialer() *MockSSHDialer {
	return &MockSSHDialer{}
}

func (m *MockSSHDialer) Dial(network, addr string, config *ssh.ClientConfig) (SSHClienter, error) {
	args := m.Called(network, addr, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(SSHClienter), args.Error(1)
}

func (m *MockSSHDialer) NewClientConn(
	conn net.Conn,
	addr string,
	config *ssh.ClientConfig,
) (SSHClienter, error) {
	args := m.Called(conn, addr, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(SSHClienter), args.Error(1)
}

type MockSSHClient struct {
	mock.Mock
}

func (m *MockSSHClient) NewSession() (SSHSessioner, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(SSHSessioner), args.Error(1)
}

func (m *MockSSHClient) Dial(network, addr string) (net.Conn, error) {
	args := m.Called(network, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(net.Conn), args.Error(1)
}

func (m *MockSSHClient) SendRequest(
	name string,
	wantReply bool,
	payload []byte,
) (bool, []byte, error) {
	args := m.Called(name, wantReply, payload)
	var reply []byte
	if args.Get(1) != nil {
		reply = args.Get(1).([]byte)
	}
	return args.Bool(0), reply, args.Error(2)
}

func (m *MockSSHClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockSSHSession struct {
	mock.Mock
}

func NewMockSSHSession() *MockSSHSession {
	return &MockSSHSession{}
}

func (m *MockSSHSession) StdinPipe() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSSHSession) StdoutPipe() (io.Reader, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.Reader), args.Error(1)
}

func (m *MockSSHSession) StderrPipe() (io.Reader, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.Reader), args.Error(1)
}

func (m *MockSSHSession) Start(cmd string) error {
	args := m.Called(cmd)
	return args.Error(0)
}

func (m *MockSSHSession) Wait() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSSHSession) Signal(sig ssh.Signal) error {
	args := m.Called(sig)
	return args.Error(0)
}

func (m *MockSSHSession) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockSFTPClient struct {
	mock.Mock
}

func (m *MockSFTPClient) Lstat(path string) (os.FileInfo, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(os.FileInfo), args.Error(1)
}

func (m *MockSFTPClient) ReadDir(path string) ([]os.FileInfo, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]os.FileInfo), args.Error(1)
}

func (m *MockSFTPClient) OpenFile(path string, flags int) (SFTPFile, error) {
	args := m.Called(path, flags)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(SFTPFile), args.Error(1)
}

func (m *MockSFTPClient) Remove(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockSFTPClient) Put(localPath, remotePath string) error {
	args := m.Called(localPath, remotePath)
	return args.Error(0)
}

func (m *MockSFTPClient) Get(remotePath, localPath string) error {
	args := m.Called(remotePath, localPath)
	return args.Error(0)
}

func (m *MockSFTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockWriteCloser struct {
	mock.Mock
}

func (m *MockWriteCloser) Write(p []byte) (n int, err error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockWriteCloser) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockFileInfo is a static os.FileInfo for stubbing Lstat and ReadDir.
type MockFileInfo struct {
	FileName string
	FileMode os.FileMode
	FileSize int64
}

func (fi MockFileInfo) Name() string       { return fi.FileName }
func (fi MockFileInfo) Size() int64        { return fi.FileSize }
func (fi MockFileInfo) Mode() os.FileMode  { return fi.FileMode }
func (fi MockFileInfo) ModTime() time.Time { return time.Time{} }
func (fi MockFileInfo) IsDir() bool        { return fi.FileMode.IsDir() }
func (fi MockFileInfo) Sys() interface{}   { return nil }

var (
	_ SSHDialer    = &MockSSHDialer{}
	_ SSHClienter  = &MockSSHClient{}
	_ SSHSessioner = &MockSSHSession{}
	_ SFTPClienter = &MockSFTPClient{}
)
