package sshutils

import (
	"fmt"
	"sync"
)

func (c *SSHClient) SudoMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sudoMode
}

func (c *SSHClient) SetSudoMode(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sudoMode = enabled
}

// SudoGuard restores the sudo flag it replaced when released.
type SudoGuard struct {
	client *SSHClient
	prior  bool
	once   sync.Once
}

// GetSudo turns sudo mode on until the returned guard is released:
//
//	guard := client.GetSudo()
//	defer guard.Release()
func (c *SSHClient) GetSudo() *SudoGuard {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := &SudoGuard{client: c, prior: c.sudoMode}
	c.sudoMode = true
	return g
}

// Release is safe to call more than once; only the first call has effect.
func (g *SudoGuard) Release() {
	g.once.Do(func() {
		g.client.SetSudoMode(g.prior)
	})
}

// WithSudo runs fn with sudo mode enabled.
func (c *SSHClient) WithSudo(fn func() error) error {
	guard := c.GetSudo()
	defer guard.Release()
	return fn()
}

// wrapCommand must be called with c.mu held.
func (c *SSHClient) wrapCommand(command string) string {
	if c.sudoMode {
		return fmt.Sprintf("sudo -S bash -c \"%s\n\"", command)
	}
	return command + "\n"
}
