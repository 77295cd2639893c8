package sshutils

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
)

// ReadPrivateKey loads and parses an unencrypted private key file.
func ReadPrivateKey(path string) (ssh.Signer, error) {
	privateKeyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(privateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
	}
	return signer, nil
}

func ReadPrivateKeys(paths ...string) ([]ssh.Signer, error) {
	signers := make([]ssh.Signer, 0, len(paths))
	for _, p := range paths {
		signer, err := ReadPrivateKey(p)
		if err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}
	return signers, nil
}

// PublicKeyString renders the signer's public key as "<type> <base64>".
func PublicKeyString(signer ssh.Signer) string {
	if signer == nil {
		return ""
	}
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(signer.PublicKey())))
}
