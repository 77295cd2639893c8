package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bacalhau-project/remotectl/pkg/logger"
	"github.com/bacalhau-project/remotectl/pkg/sshutils"
	"github.com/bacalhau-project/remotectl/pkg/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newExecCmd(opts *rootOptions) *cobra.Command {
	var (
		check       bool
		checkStderr bool
		sudo        bool
	)

	cmd := &cobra.Command{
		Use:   "exec [flags] -- COMMAND [ARGS...]",
		Short: "Run a command on one or more hosts",
		Long: `Run a command on every selected host. With a single host the remote
output is streamed to stdout and stderr and remotectl exits with the remote
exit code. With several hosts the command runs on all of them at once and a
summary table is printed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := opts.resolveTargets()
			if err != nil {
				return err
			}
			if sudo {
				for i := range targets {
					targets[i].host.Sudo = true
				}
			}

			mode := checkNone
			switch {
			case checkStderr:
				mode = checkStderrMode
			case check:
				mode = checkExit
			}

			ctx := logger.IntoContext(cmd.Context(), logger.Get())
			command := strings.Join(args, " ")
			if len(targets) == 1 {
				return opts.execOne(ctx, cmd, targets[0], command, mode)
			}
			return opts.execMany(ctx, cmd, targets, command, mode)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "fail when the exit code is not 0")
	cmd.Flags().BoolVar(&checkStderr, "check-stderr", false, "like --check, and also fail on any stderr output")
	cmd.Flags().BoolVar(&sudo, "sudo", false, "run through sudo, answering the prompt with the SSH password")
	return cmd
}

func (o *rootOptions) execOne(
	ctx context.Context,
	cmd *cobra.Command,
	t target,
	command string,
	mode checkMode,
) error {
	result, err := o.run(ctx, t, command, mode)
	if result != nil {
		writeResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), result)
	}
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return &ExitError{Code: result.ExitCode}
	}
	return nil
}

// execMany dials every direct host concurrently and runs command on them
// together. Hosts behind a bastion get one tunnelled call each.
func (o *rootOptions) execMany(
	ctx context.Context,
	cmd *cobra.Command,
	targets []target,
	command string,
	mode checkMode,
) error {
	results := make([]*sshutils.CommandResult, len(targets))
	errs := make([]error, len(targets))
	clients := make([]*sshutils.SSHClient, len(targets))

	var (
		mu      sync.Mutex
		closers []func()
		g       errgroup.Group
	)
	defer func() {
		for _, done := range closers {
			done()
		}
	}()

	for i, t := range targets {
		g.Go(func() error {
			logger.RecoverAndLog(func() {
				if t.jump != nil {
					results[i], errs[i] = o.run(ctx, t, command, mode)
					return
				}
				client, done, err := o.dial(ctx, t.host)
				if err != nil {
					errs[i] = err
					return
				}
				clients[i] = client
				mu.Lock()
				closers = append(closers, done)
				mu.Unlock()
			})
			return nil
		})
	}
	_ = g.Wait()

	var (
		remotes []*sshutils.SSHClient
		index   []int
	)
	for i, c := range clients {
		if c != nil {
			remotes = append(remotes, c)
			index = append(index, i)
		}
	}
	together, err := sshutils.ExecuteTogetherContext(ctx, remotes, command)
	for _, re := range sshutils.RemoteErrors(err) {
		errs[index[re.Index]] = re.Err
	}
	for j, res := range together {
		i := index[j]
		if res == nil {
			continue
		}
		results[i] = res
		if errs[i] == nil {
			errs[i] = mode.verify(command, res)
		}
	}

	rt := table.NewResultTable(cmd.OutOrStdout())
	failed := 0
	for i, t := range targets {
		rt.AddResult(t.String(), results[i], errs[i])
		if errs[i] != nil || results[i] == nil || results[i].ExitCode != 0 {
			failed++
		}
	}
	rt.Render()

	if failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d hosts failed\n", failed, len(targets))
		return &ExitError{Code: 1}
	}
	return nil
}

// writeResult replays captured output. Lines keep their terminators.
func writeResult(stdout, stderr io.Writer, result *sshutils.CommandResult) {
	for _, line := range result.Stdout {
		fmt.Fprint(stdout, line)
	}
	for _, line := range result.Stderr {
		fmt.Fprint(stderr, line)
	}
}
