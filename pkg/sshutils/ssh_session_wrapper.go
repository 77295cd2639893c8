package sshutils

import (
	"io"

	"golang.org/x/crypto/ssh"
)

// SSHSessionWrapper implements SSHSessioner interface
type SSHSessionWrapper struct {
	Session *ssh.Session
}

func (s *SSHSessionWrapper) StdinPipe() (io.WriteCloser, error) {
	return s.Session.StdinPipe()
}

func (s *SSHSessionWrapper) StdoutPipe() (io.Reader, error) {
	return s.Session.StdoutPipe()
}

func (s *SSHSessionWrapper) StderrPipe() (io.Reader, error) {
	return s.Session.StderrPipe()
}

func (s *SSHSessionWrapper) Start(cmd string) error {
	return s.Session.Start(cmd)
}

func (s *SSHSessionWrapper) Wait() error {
	return s.Session.Wait()
}

func (s *SSHSessionWrapper) Signal(sig ssh.Signal) error {
	return s.Session.Signal(sig)
}

func (s *SSHSessionWrapper) Close() error {
	return s.Session.Close()
}
