package sshutils

import (
	"net"

	"golang.org/x/crypto/ssh"
)

type SSHClientWrapper struct {
	Client *ssh.Client
}

func (c *SSHClientWrapper) NewSession() (SSHSessioner, error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, err
	}
	return &SSHSessionWrapper{Session: session}, nil
}

func (c *SSHClientWrapper) Dial(network, addr string) (net.Conn, error) {
	return c.Client.Dial(network, addr)
}

func (c *SSHClientWrapper) SendRequest(
	name string,
	wantReply bool,
	payload []byte,
) (bool, []byte, error) {
	return c.Client.SendRequest(name, wantReply, payload)
}

func (c *SSHClientWrapper) Close() error {
	return c.Client.Close()
}
