package sshutils

import (
	"io"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
)

// SSHClienter is an authenticated SSH transport
type SSHClienter interface {
	NewSession() (SSHSessioner, error)
	// Dial opens a direct-tcpip channel from the remote host to addr.
	Dial(network, addr string) (net.Conn, error)
	SendRequest(name string, wantReply bool, payload []byte) (bool, []byte, error)
	Close() error
}

// SSHSessioner is a single exec channel on an SSHClienter
type SSHSessioner interface {
	StdinPipe() (io.WriteCloser, error)
	StdoutPipe() (io.Reader, error)
	StderrPipe() (io.Reader, error)
	Start(cmd string) error
	Wait() error
	Signal(sig ssh.Signal) error
	Close() error
}

// SSHDialer establishes SSH transports, either over a fresh TCP connection
// or over an already open net.Conn such as a tunnelled channel.
type SSHDialer interface {
	Dial(network, addr string, config *ssh.ClientConfig) (SSHClienter, error)
	NewClientConn(conn net.Conn, addr string, config *ssh.ClientConfig) (SSHClienter, error)
}

// SFTPFile is a remote file opened through SFTP
type SFTPFile interface {
	io.Reader
	io.Writer
	io.Closer
}

// SFTPClienter interface defines the methods we need for SFTP operations
type SFTPClienter interface {
	Lstat(path string) (os.FileInfo, error)
	ReadDir(path string) ([]os.FileInfo, error)
	OpenFile(path string, flags int) (SFTPFile, error)
	Remove(path string) error
	Put(localPath, remotePath string) error
	Get(remotePath, localPath string) error
	Close() error
}

// SFTPClientCreator opens an SFTP sub-session on an authenticated transport
type SFTPClientCreator func(client SSHClienter) (SFTPClienter, error)

var (
	_ SSHClienter  = &SSHClientWrapper{}
	_ SSHSessioner = &SSHSessionWrapper{}
	_ SSHDialer    = &SSHDial{}
	_ SFTPClienter = &SFTPClientWrapper{}
)
