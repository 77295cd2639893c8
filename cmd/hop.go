package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bacalhau-project/remotectl/pkg/logger"
	"github.com/bacalhau-project/remotectl/pkg/sshutils"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
)

func newHopCmd(opts *rootOptions) *cobra.Command {
	var (
		targetHost  string
		hopUser     string
		hopPassword string
		hopKey      string
	)

	cmd := &cobra.Command{
		Use:   "hop --host BASTION --target HOST [flags] -- COMMAND [ARGS...]",
		Short: "Run a command on a host that is only reachable through another",
		Long: `Connect to the bastion given with --host, open a tunnel from it to port 22
of --target and run the command there. When none of --hop-user,
--hop-password or --hop-key is given the bastion's own credentials are reused.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if targetHost == "" {
				return errors.New("--target is required")
			}
			targets, err := opts.resolveTargets()
			if err != nil {
				return err
			}
			if len(targets) != 1 || targets[0].jump != nil {
				return errors.New("hop needs exactly one directly reachable --host")
			}

			creds := sshutils.TunnelCredentials{Username: hopUser, Password: hopPassword}
			if hopKey != "" {
				path, err := homedir.Expand(hopKey)
				if err != nil {
					return fmt.Errorf("failed to expand key path: %w", err)
				}
				if creds.Key, err = sshutils.ReadPrivateKey(path); err != nil {
					return err
				}
			}

			ctx := logger.IntoContext(cmd.Context(), logger.Get())
			bastion, done, err := opts.dial(ctx, targets[0].host)
			if err != nil {
				return err
			}
			defer done()

			result, err := bastion.ExecuteThroughHostContext(ctx, targetHost, strings.Join(args, " "), creds)
			if err != nil {
				return err
			}
			writeResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), result)
			if result.ExitCode != 0 {
				return &ExitError{Code: result.ExitCode}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&targetHost, "target", "", "host to reach through the bastion")
	cmd.Flags().StringVar(&hopUser, "hop-user", "", "username on the target (default: bastion username)")
	cmd.Flags().StringVar(&hopPassword, "hop-password", "", "password on the target")
	cmd.Flags().StringVar(&hopKey, "hop-key", "", "private key file for the target")
	return cmd
}
