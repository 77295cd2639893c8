package config

import (
	"fmt"
	"os"

	"github.com/bacalhau-project/remotectl/pkg/sshutils"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"
)

// HostConfig is one entry of the inventory file.
type HostConfig struct {
	Name            string   `yaml:"name"`
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port,omitempty"`
	Username        string   `yaml:"username,omitempty"`
	Password        string   `yaml:"password,omitempty"`
	PrivateKeyPaths []string `yaml:"private_key_paths,omitempty"`
	UseAgent        bool     `yaml:"use_agent,omitempty"`
	Sudo            bool     `yaml:"sudo,omitempty"`
	// Jump names another inventory host this one is reached through.
	Jump string `yaml:"jump,omitempty"`
}

type Inventory struct {
	Hosts []HostConfig `yaml:"hosts"`
}

func LoadInventory(path string) (*Inventory, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand inventory path: %w", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	return ParseInventory(data)
}

func ParseInventory(data []byte) (*Inventory, error) {
	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse inventory: %w", err)
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (inv *Inventory) Validate() error {
	seen := make(map[string]bool, len(inv.Hosts))
	for i, h := range inv.Hosts {
		if h.Host == "" {
			return fmt.Errorf("inventory entry %d has no host", i)
		}
		name := h.key()
		if seen[name] {
			return fmt.Errorf("duplicate inventory host %q", name)
		}
		seen[name] = true
	}
	for _, h := range inv.Hosts {
		if h.Jump == "" {
			continue
		}
		if h.Jump == h.key() {
			return fmt.Errorf("host %q cannot jump through itself", h.key())
		}
		jump, ok := inv.Lookup(h.Jump)
		if !ok {
			return fmt.Errorf("host %q jumps through unknown host %q", h.key(), h.Jump)
		}
		if jump.Jump != "" {
			return fmt.Errorf("jump host %q must be directly reachable", jump.key())
		}
	}
	return nil
}

// Lookup finds a host by name, falling back to its address.
func (inv *Inventory) Lookup(name string) (HostConfig, bool) {
	for _, h := range inv.Hosts {
		if h.key() == name {
			return h, true
		}
	}
	return HostConfig{}, false
}

func (h HostConfig) key() string {
	if h.Name != "" {
		return h.Name
	}
	return h.Host
}

// WithDefaults fills unset connection fields from d. Passwords may reference
// environment variables as $VAR or ${VAR}.
func (h HostConfig) WithDefaults(d SSHConfig) HostConfig {
	if h.Port == 0 {
		h.Port = d.Port
	}
	if h.Username == "" {
		h.Username = d.Username
	}
	h.Password = os.ExpandEnv(h.Password)
	return h
}

func (h HostConfig) KeyPaths() ([]string, error) {
	paths := make([]string, 0, len(h.PrivateKeyPaths))
	for _, p := range h.PrivateKeyPaths {
		expanded, err := homedir.Expand(p)
		if err != nil {
			return nil, fmt.Errorf("failed to expand key path %s: %w", p, err)
		}
		paths = append(paths, expanded)
	}
	return paths, nil
}

func (h HostConfig) Signers() ([]ssh.Signer, error) {
	paths, err := h.KeyPaths()
	if err != nil {
		return nil, err
	}
	return sshutils.ReadPrivateKeys(paths...)
}
