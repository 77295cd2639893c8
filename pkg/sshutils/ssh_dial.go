package sshutils

import (
	"net"

	"golang.org/x/crypto/ssh"
)

var SSHDialerFunc = NewSSHDial

func NewSSHDial() SSHDialer {
	return &SSHDial{
		DialCreator: func(network, addr string, config *ssh.ClientConfig) (SSHClienter, error) {
			client, err := ssh.Dial(network, addr, config)
			if err != nil {
				return nil, err
			}
			return &SSHClientWrapper{Client: client}, nil
		},
	}
}

type SSHDial struct {
	DialCreator func(network, addr string, config *ssh.ClientConfig) (SSHClienter, error)
}

func (d *SSHDial) Dial(network, addr string, config *ssh.ClientConfig) (SSHClienter, error) {
	return d.DialCreator(network, addr, config)
}

// NewClientConn runs a client handshake over conn, which may itself be a
// channel on another SSH transport.
func (d *SSHDial) NewClientConn(
	conn net.Conn,
	addr string,
	config *ssh.ClientConfig,
) (SSHClienter, error) {
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		return nil, err
	}
	return &SSHClientWrapper{Client: ssh.NewClient(c, chans, reqs)}, nil
}
