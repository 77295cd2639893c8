package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/keygen"
	"golang.org/x/crypto/ssh"
)

// TestKeyPair is an in-memory ed25519 key pair for tests.
type TestKeyPair struct {
	PrivateKey    []byte
	AuthorizedKey string
	Signer        ssh.Signer
}

func GenerateTestKeyPair(tb testing.TB) *TestKeyPair {
	tb.Helper()
	kp, err := keygen.New("", keygen.WithKeyType(keygen.Ed25519))
	if err != nil {
		tb.Fatalf("failed to generate key pair: %v", err)
	}
	signer, err := ssh.ParsePrivateKey(kp.RawPrivateKey())
	if err != nil {
		tb.Fatalf("failed to parse generated key: %v", err)
	}
	return &TestKeyPair{
		PrivateKey:    kp.RawPrivateKey(),
		AuthorizedKey: strings.TrimSpace(string(kp.RawAuthorizedKey())),
		Signer:        signer,
	}
}

// WriteTestKeyPair writes a fresh private key to dir/name and its public
// half to dir/name.pub, returning the private key path.
func WriteTestKeyPair(tb testing.TB, dir, name string) (string, *TestKeyPair) {
	tb.Helper()
	kp := GenerateTestKeyPair(tb)
	privatePath := filepath.Join(dir, name)
	if err := os.WriteFile(privatePath, kp.PrivateKey, 0o600); err != nil { //nolint:mnd
		tb.Fatalf("failed to write private key: %v", err)
	}
	if err := os.WriteFile(privatePath+".pub", []byte(kp.AuthorizedKey+"\n"), 0o600); err != nil { //nolint:mnd
		tb.Fatalf("failed to write public key: %v", err)
	}
	return privatePath, kp
}

func WriteStringToTempFile(content string) (string, func(), error) {
	tempFile, err := os.CreateTemp("", "temp-*")
	if err != nil {
		return "", nil, err
	}

	if _, err := tempFile.WriteString(content); err != nil {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return "", nil, err
	}

	tempFile.Close()

	cleanup := func() {
		os.Remove(tempFile.Name())
	}

	return tempFile.Name(), cleanup, nil
}
