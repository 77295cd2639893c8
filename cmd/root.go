package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bacalhau-project/remotectl/pkg/config"
	"github.com/bacalhau-project/remotectl/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootOptions carries the persistent flags and the configuration resolved
// from them before any subcommand runs.
type rootOptions struct {
	cfgFile       string
	inventoryPath string
	logLevel      string
	hosts         []string
	port          int
	user          string
	password      string
	keys          []string
	useAgent      bool
	timeout       time.Duration
	wait          bool
	verbose       bool

	v   *viper.Viper
	cfg *config.Config
	inv *config.Inventory
}

// NewRootCmd builds the command tree with fresh flag state.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "remotectl",
		Short: "Run commands and move files on remote hosts over SSH",
		Long: `remotectl drives remote machines over SSH: it runs commands (optionally
with sudo), fans them out to many hosts at once, hops through a bastion to
reach private hosts, and copies files and directories over SFTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.initConfig(cmd)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.remotectl.yaml)")
	pf.StringVar(&opts.inventoryPath, "inventory", "", "inventory file listing known hosts")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringArrayVarP(&opts.hosts, "host", "H", nil, "target host as [user@]host[:port] or inventory name (repeatable)")
	pf.IntVar(&opts.port, "port", 0, "SSH port used when a host does not name one")
	pf.StringVarP(&opts.user, "user", "u", "", "SSH username used when a host does not name one")
	pf.StringVar(&opts.password, "password", "", "SSH password, tried after keys")
	pf.StringArrayVarP(&opts.keys, "key", "i", nil, "private key file (repeatable)")
	pf.BoolVar(&opts.useAgent, "agent", false, "also offer keys held by ssh-agent")
	pf.DurationVar(&opts.timeout, "timeout", 0, "per-command timeout (0 waits forever)")
	pf.BoolVar(&opts.wait, "wait", false, "retry connecting until the host accepts SSH")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log remote output as it is collected")

	rootCmd.AddCommand(
		newExecCmd(opts),
		newHopCmd(opts),
		newPutCmd(opts),
		newGetCmd(opts),
		getCompletionCmd(),
	)
	return rootCmd
}

// Execute runs the CLI until it finishes or the process is interrupted. It is
// called by main.main().
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

var flagBindings = map[string]string{
	"log.level":           "log-level",
	"ssh.port":            "port",
	"ssh.username":        "user",
	"ssh.command_timeout": "timeout",
	"inventory":           "inventory",
}

// initConfig reads .env, the config file and REMOTECTL_* variables, then
// layers the flags on top.
func (o *rootOptions) initConfig(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	v := o.v
	if o.cfgFile != "" {
		v.SetConfigFile(o.cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("failed to find home directory: %w", err)
		}
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(config.DefaultConfigName)
	}
	config.BindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	for key, flag := range flagBindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobalVerbose(o.verbose)
	logger.Get().Debugf("Using config file: %s", v.ConfigFileUsed())
	o.cfg = cfg

	if cfg.InventoryPath != "" {
		inv, err := config.LoadInventory(cfg.InventoryPath)
		if err != nil {
			return err
		}
		o.inv = inv
	}
	return nil
}
