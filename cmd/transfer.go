package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bacalhau-project/remotectl/pkg/display"
	"github.com/bacalhau-project/remotectl/pkg/logger"
	"github.com/spf13/cobra"
)

var errJumpTransfer = errors.New("file transfer through a jump host is not supported")

func newPutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put LOCAL REMOTE",
		Short: "Upload a file or directory to every selected host",
		Long: `Upload LOCAL to REMOTE over SFTP. Directories are copied recursively and
existing remote files are replaced. If REMOTE is an existing directory LOCAL
is placed inside it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, dest := args[0], args[1]
			if _, err := os.Stat(source); err != nil {
				return fmt.Errorf("failed to stat %s: %w", source, err)
			}
			targets, err := opts.resolveTargets()
			if err != nil {
				return err
			}

			ctx := logger.IntoContext(cmd.Context(), logger.Get())
			var errs []error
			for _, t := range targets {
				if t.jump != nil {
					errs = append(errs, fmt.Errorf("%s: %w", t, errJumpTransfer))
					continue
				}
				err := display.Run(cmd.ErrOrStderr(), fmt.Sprintf("Uploading %s to %s:%s", source, t, dest), func() error {
					client, done, err := opts.dial(ctx, t.host)
					if err != nil {
						return err
					}
					defer done()
					ctx, cancel := opts.transferContext(ctx)
					defer cancel()
					return client.UploadContext(ctx, source, dest)
				})
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", t, err))
				}
			}
			return errors.Join(errs...)
		},
	}
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get REMOTE LOCAL",
		Short: "Download a file or directory from the selected hosts",
		Long: `Download REMOTE to LOCAL over SFTP. Directories are copied recursively.
With several hosts each one is written to LOCAL/<host>.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, dest := args[0], args[1]
			targets, err := opts.resolveTargets()
			if err != nil {
				return err
			}

			ctx := logger.IntoContext(cmd.Context(), logger.Get())
			var errs []error
			for _, t := range targets {
				if t.jump != nil {
					errs = append(errs, fmt.Errorf("%s: %w", t, errJumpTransfer))
					continue
				}
				local := dest
				if len(targets) > 1 {
					local = filepath.Join(dest, t.String())
					if err := os.MkdirAll(local, 0o755); err != nil {
						return fmt.Errorf("failed to create %s: %w", local, err)
					}
				}
				err := display.Run(cmd.ErrOrStderr(), fmt.Sprintf("Downloading %s:%s", t, source), func() error {
					client, done, err := opts.dial(ctx, t.host)
					if err != nil {
						return err
					}
					defer done()
					ctx, cancel := opts.transferContext(ctx)
					defer cancel()
					ok, err := client.DownloadContext(ctx, source, local)
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("remote path %s does not exist", source)
					}
					return nil
				})
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", t, err))
				}
			}
			return errors.Join(errs...)
		},
	}
}

// transferContext bounds a transfer by the configured SFTP timeout.
func (o *rootOptions) transferContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.SSH.SFTPTimeout > 0 {
		return context.WithTimeout(ctx, o.cfg.SSH.SFTPTimeout)
	}
	return context.WithCancel(ctx)
}
