package sshutils

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/sftp"
)

// SFTP returns the cached SFTP sub-session, opening a new one if needed.
// A failed open leaves the cache empty so the next call tries again.
func (c *SSHClient) SFTP() (SFTPClienter, error) {
	return c.sftpSession(context.Background())
}

// sftpSession is SFTP bound to ctx: once ctx is done it neither hands out
// the cached session nor opens a new one.
func (c *SSHClient) sftpSession(ctx context.Context) (SFTPClienter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.sftp != nil {
		return c.sftp, nil
	}
	if c.client == nil {
		return nil, fmt.Errorf("%w: %w", ErrSFTPUnavailable, ErrClientClosed)
	}

	c.logger.Warn("SFTP is not connected, try to reconnect")
	s, err := c.sftpCreator(c.client)
	if err != nil {
		c.logger.Warn("SFTP enable failed! SSH only is accessible.")
		return nil, fmt.Errorf("%w: %s: %w", ErrSFTPUnavailable, c.Address(), err)
	}
	c.sftp = s
	return s, nil
}

// invalidateSFTP drops s from the cache if err looks like the sub-session
// itself broke rather than the remote refusing one request.
func (c *SSHClient) invalidateSFTP(s SFTPClienter, err error) {
	if err == nil || !isTransportError(err) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sftp == s {
		c.logger.Debugf("Dropping SFTP session on %s: %v", c.Address(), err)
		_ = c.sftp.Close()
		c.sftp = nil
	}
}

func isTransportError(err error) bool {
	var statusErr *sftp.StatusError
	if errors.As(err, &statusErr) {
		return false
	}
	return !errors.Is(err, fs.ErrNotExist) &&
		!errors.Is(err, fs.ErrPermission) &&
		!errors.Is(err, fs.ErrExist)
}

// lstat returns nil info when p cannot be stat'ed. The error is non-nil
// only when no SFTP session could be obtained or ctx is done.
func (c *SSHClient) lstat(ctx context.Context, p string) (os.FileInfo, error) {
	s, err := c.sftpSession(ctx)
	if err != nil {
		return nil, err
	}
	info, err := s.Lstat(p)
	c.invalidateSFTP(s, err)
	if err != nil {
		return nil, nil
	}
	return info, nil
}

// Exists reports whether path can be stat'ed. The error is non-nil only when
// no SFTP session could be obtained.
func (c *SSHClient) Exists(p string) (bool, error) {
	return c.exists(context.Background(), p)
}

func (c *SSHClient) exists(ctx context.Context, p string) (bool, error) {
	info, err := c.lstat(ctx, p)
	return info != nil, err
}

func (c *SSHClient) IsFile(p string) (bool, error) {
	info, err := c.lstat(context.Background(), p)
	return info != nil && info.Mode().IsRegular(), err
}

func (c *SSHClient) IsDir(p string) (bool, error) {
	return c.isDir(context.Background(), p)
}

func (c *SSHClient) isDir(ctx context.Context, p string) (bool, error) {
	info, err := c.lstat(ctx, p)
	return info != nil && info.IsDir(), err
}

func openFlags(mode string) (int, error) {
	switch strings.ReplaceAll(mode, "b", "") {
	case "", "r":
		return os.O_RDONLY, nil
	case "r+":
		return os.O_RDWR, nil
	case "w":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case "w+":
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
	case "a":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case "a+":
		return os.O_RDWR | os.O_CREATE | os.O_APPEND, nil
	default:
		return 0, fmt.Errorf("unsupported open mode %q", mode)
	}
}

// Open opens a remote file with a fopen-style mode ("r", "w", "a", "r+", ...).
func (c *SSHClient) Open(p string, mode string) (SFTPFile, error) {
	flags, err := openFlags(mode)
	if err != nil {
		return nil, err
	}
	s, err := c.SFTP()
	if err != nil {
		return nil, err
	}
	f, err := s.OpenFile(p, flags)
	c.invalidateSFTP(s, err)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p, err)
	}
	return f, nil
}

func (c *SSHClient) Mkdir(p string) error {
	return c.mkdir(context.Background(), p)
}

func (c *SSHClient) mkdir(ctx context.Context, p string) error {
	exists, err := c.exists(ctx, p)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	ctx, cancel := c.commandContext(ctx)
	defer cancel()
	_, err = c.ExecuteContext(ctx, fmt.Sprintf("mkdir -p %s", p), false)
	return err
}

func (c *SSHClient) RmRf(p string) error {
	_, err := c.Execute(fmt.Sprintf("rm -rf %s", p), false)
	return err
}

// withSFTPDeadline runs fn, dropping the SFTP session if ctx expires first
// so in-flight transfers are aborted. fn must pass ctx to every SFTP step so
// a step still running after the deadline cannot reopen the session.
func (c *SSHClient) withSFTPDeadline(ctx context.Context, fn func() error) error {
	if ctx.Done() == nil {
		return fn()
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		c.mu.Lock()
		if c.sftp != nil {
			_ = c.sftp.Close()
			c.sftp = nil
		}
		c.mu.Unlock()
		return fmt.Errorf("sftp transfer on %s: %w", c.Address(), ctx.Err())
	}
}

func (c *SSHClient) transferContext() (context.Context, context.CancelFunc) {
	if c.timeouts.SFTPTimeout > 0 {
		return context.WithTimeout(context.Background(), c.timeouts.SFTPTimeout)
	}
	return context.Background(), func() {}
}

// Upload copies a local file or directory tree to target. If target is an
// existing remote directory the source is placed inside it.
func (c *SSHClient) Upload(source, target string) error {
	ctx, cancel := c.transferContext()
	defer cancel()
	return c.UploadContext(ctx, source, target)
}

func (c *SSHClient) UploadContext(ctx context.Context, source, target string) error {
	c.logger.Debugf("Copying '%s' -> '%s'", source, target)
	return c.withSFTPDeadline(ctx, func() error {
		return c.upload(ctx, source, target)
	})
}

func (c *SSHClient) upload(ctx context.Context, source, target string) error {
	isDir, err := c.isDir(ctx, target)
	if err != nil {
		return err
	}
	if isDir {
		target = path.Join(target, filepath.Base(source))
	}

	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", source, err)
	}
	if !info.IsDir() {
		return c.put(ctx, source, target)
	}

	return filepath.WalkDir(source, func(localPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := filepath.Rel(source, localPath)
		if err != nil {
			return err
		}
		remotePath := path.Join(target, filepath.ToSlash(rel))

		if d.IsDir() {
			return c.mkdir(ctx, remotePath)
		}
		exists, err := c.exists(ctx, remotePath)
		if err != nil {
			return err
		}
		if exists {
			if err := c.remove(ctx, remotePath); err != nil {
				return err
			}
		}
		return c.put(ctx, localPath, remotePath)
	})
}

func (c *SSHClient) put(ctx context.Context, localPath, remotePath string) error {
	s, err := c.sftpSession(ctx)
	if err != nil {
		return err
	}
	err = s.Put(localPath, remotePath)
	c.invalidateSFTP(s, err)
	if err != nil {
		return fmt.Errorf("failed to upload %s to %s: %w", localPath, remotePath, err)
	}
	return nil
}

func (c *SSHClient) remove(ctx context.Context, remotePath string) error {
	s, err := c.sftpSession(ctx)
	if err != nil {
		return err
	}
	err = s.Remove(remotePath)
	c.invalidateSFTP(s, err)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", remotePath, err)
	}
	return nil
}

// Download copies the remote file or directory destination to the local
// path target and reports whether target exists afterwards. If target is an
// existing local directory the remote entry is placed inside it.
func (c *SSHClient) Download(destination, target string) (bool, error) {
	ctx, cancel := c.transferContext()
	defer cancel()
	return c.DownloadContext(ctx, destination, target)
}

func (c *SSHClient) DownloadContext(ctx context.Context, destination, target string) (bool, error) {
	c.logger.Debugf("Copying '%s' -> '%s' from remote to local host", destination, target)

	if info, err := os.Stat(target); err == nil && info.IsDir() {
		target = filepath.Join(target, path.Base(destination))
	}

	err := c.withSFTPDeadline(ctx, func() error {
		return c.download(ctx, destination, target)
	})
	if err != nil {
		return false, err
	}

	_, statErr := os.Stat(target)
	return statErr == nil, nil
}

func (c *SSHClient) download(ctx context.Context, remotePath, localPath string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	isDir, err := c.isDir(ctx, remotePath)
	if err != nil {
		return err
	}
	if !isDir {
		exists, err := c.exists(ctx, remotePath)
		if err != nil {
			return err
		}
		if !exists {
			c.logger.Debugf("Can't download %s because it doesn't exist", remotePath)
			return nil
		}
		return c.get(ctx, remotePath, localPath)
	}

	if err := os.MkdirAll(localPath, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create %s: %w", localPath, err)
	}
	s, err := c.sftpSession(ctx)
	if err != nil {
		return err
	}
	entries, err := s.ReadDir(remotePath)
	c.invalidateSFTP(s, err)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", remotePath, err)
	}
	for _, entry := range entries {
		err := c.download(ctx, path.Join(remotePath, entry.Name()), filepath.Join(localPath, entry.Name()))
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *SSHClient) get(ctx context.Context, remotePath, localPath string) error {
	s, err := c.sftpSession(ctx)
	if err != nil {
		return err
	}
	err = s.Get(remotePath, localPath)
	c.invalidateSFTP(s, err)
	if err != nil {
		return fmt.Errorf("failed to download %s to %s: %w", remotePath, localPath, err)
	}
	return nil
}
