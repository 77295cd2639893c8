package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/bacalhau-project/remotectl/pkg/logger"
	"github.com/bacalhau-project/remotectl/pkg/sshutils"
	"github.com/spf13/viper"
)

const (
	EnvPrefix         = "REMOTECTL"
	DefaultConfigName = ".remotectl"
)

type Config struct {
	Log           logger.Config `mapstructure:"log"`
	SSH           SSHConfig     `mapstructure:"ssh"`
	InventoryPath string        `mapstructure:"inventory"`
}

// SSHConfig holds connection defaults applied to every host.
type SSHConfig struct {
	Port           int           `mapstructure:"port"`
	Username       string        `mapstructure:"username"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	SFTPTimeout    time.Duration `mapstructure:"sftp_timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", logger.InfoLogLevel)
	v.SetDefault("log.format", "console")
	v.SetDefault("log.enable_console", true)
	v.SetDefault("ssh.port", sshutils.DefaultSSHPort)
	v.SetDefault("ssh.dial_timeout", sshutils.SSHDialTimeout)
	v.SetDefault("ssh.command_timeout", sshutils.SSHCommandTimeout)
	v.SetDefault("ssh.sftp_timeout", sshutils.SFTPTimeout)
	v.SetDefault("ssh.retry_attempts", sshutils.SSHRetryAttempts)
	v.SetDefault("ssh.retry_delay", sshutils.SSHRetryDelay)
	v.SetDefault("inventory", "")
}

// BindEnv makes every key overridable as REMOTECTL_<SECTION>_<KEY>.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load applies defaults and decodes v into a Config.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.SSH.Port < 0 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port %d is out of range", c.SSH.Port)
	}
	if c.SSH.RetryAttempts < 0 {
		return fmt.Errorf("ssh.retry_attempts must not be negative")
	}
	for name, d := range map[string]time.Duration{
		"ssh.dial_timeout":    c.SSH.DialTimeout,
		"ssh.command_timeout": c.SSH.CommandTimeout,
		"ssh.sftp_timeout":    c.SSH.SFTPTimeout,
		"ssh.retry_delay":     c.SSH.RetryDelay,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

func (s SSHConfig) Timeouts() sshutils.TimeoutConfig {
	return sshutils.TimeoutConfig{
		DialTimeout:    s.DialTimeout,
		CommandTimeout: s.CommandTimeout,
		SFTPTimeout:    s.SFTPTimeout,
	}
}
