package sshutils

import "time"

const (
	DefaultSSHPort = 22

	keepAliveRequest = "keepalive@openssh.com"
)

var (
	SSHDialTimeout    = 10 * time.Second
	SSHCommandTimeout = 0 * time.Second
	SFTPTimeout       = 5 * time.Minute
	SSHRetryAttempts  = 3
	SSHRetryDelay     = 20 * time.Second
)
