package sshutils

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// AgentSigners returns the keys held by the agent at $SSH_AUTH_SOCK. The
// returned close func releases the agent connection and must be called once
// the signers are no longer needed.
func AgentSigners() ([]ssh.Signer, func() error, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, nil, fmt.Errorf("SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to ssh agent: %w", err)
	}

	signers, err := agent.NewClient(conn).Signers()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to list ssh agent keys: %w", err)
	}
	return signers, conn.Close, nil
}
