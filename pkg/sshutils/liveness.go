package sshutils

// IsConnected sends a keepalive request over the transport.
func (c *SSHClient) IsConnected() bool {
	client, err := c.transport()
	if err != nil {
		return false
	}
	if _, _, err := client.SendRequest(keepAliveRequest, true, nil); err != nil {
		c.logger.Debugf("Keepalive to %s failed: %v", c.Address(), err)
		return false
	}
	return true
}
