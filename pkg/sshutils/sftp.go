package sshutils

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/sftp"
)

// SFTPClientWrapper adapts *sftp.Client to SFTPClienter
type SFTPClientWrapper struct {
	Client *sftp.Client
}

// NewSFTPClient is the default SFTPClientCreator.
func NewSFTPClient(client SSHClienter) (SFTPClienter, error) {
	wrapper, ok := client.(*SSHClientWrapper)
	if !ok || wrapper.Client == nil {
		return nil, fmt.Errorf("sftp requires an *ssh.Client transport, got %T", client)
	}
	c, err := sftp.NewClient(wrapper.Client)
	if err != nil {
		return nil, err
	}
	return &SFTPClientWrapper{Client: c}, nil
}

func (s *SFTPClientWrapper) Lstat(path string) (os.FileInfo, error) {
	return s.Client.Lstat(path)
}

func (s *SFTPClientWrapper) ReadDir(path string) ([]os.FileInfo, error) {
	return s.Client.ReadDir(path)
}

func (s *SFTPClientWrapper) OpenFile(path string, flags int) (SFTPFile, error) {
	f, err := s.Client.OpenFile(path, flags)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *SFTPClientWrapper) Remove(path string) error {
	return s.Client.Remove(path)
}

// Put copies a local file to remotePath, truncating any existing file.
func (s *SFTPClientWrapper) Put(localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := s.Client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
	}
	if _, err := dst.ReadFrom(src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to write remote file %s: %w", remotePath, err)
	}
	return dst.Close()
}

func (s *SFTPClientWrapper) Get(remotePath, localPath string) error {
	src, err := s.Client.Open(remotePath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to read remote file %s: %w", remotePath, err)
	}
	return dst.Close()
}

func (s *SFTPClientWrapper) Close() error {
	return s.Client.Close()
}
