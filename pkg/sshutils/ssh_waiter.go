package sshutils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bacalhau-project/remotectl/pkg/logger"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/crypto/ssh"
)

// ConnectParams is everything NewSSHClient needs, bundled for retries.
type ConnectParams struct {
	Host        string
	Port        int
	Username    string
	Password    string
	PrivateKeys []ssh.Signer
	Options     []Option
}

var SSHWaiterFunc = WaitForSSHToBeLive

// WaitForSSHToBeLive keeps trying to connect until the host accepts us,
// retries run out or ctx is done. A rejected login is not retried.
func WaitForSSHToBeLive(
	ctx context.Context,
	params ConnectParams,
	retries int,
	delay time.Duration,
) (*SSHClient, error) {
	l := logger.FromContext(ctx)
	l.Debugf("Starting SSH connection check to %s:%d", params.Host, params.Port)

	var client *SSHClient
	attempt := 0
	operation := func() error {
		attempt++
		l.Debugf("Attempt %d to connect via SSH", attempt)
		c, err := NewSSHClientFunc(
			params.Host,
			params.Port,
			params.Username,
			params.Password,
			params.PrivateKeys,
			params.Options...,
		)
		if err != nil {
			if errors.Is(err, ErrAuthenticationFailed) {
				return backoff.Permanent(err)
			}
			l.Debugf("SSH to %s not ready: %v", params.Host, err)
			return err
		}
		client = c
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(max(retries, 0))),
		ctx,
	)
	if err := backoff.Retry(operation, b); err != nil {
		err = fmt.Errorf("failed to establish SSH connection after %d attempts: %w", attempt, err)
		l.Error(err.Error())
		return nil, err
	}

	l.Debug("SSH connection established")
	return client, nil
}
