package terminal

import (
	"context"
	"io"
	"os"

	"github.com/de-tools/access-atlas/pkg/runtime/terminal/commands"

	"github.com/de-tools/access-atlas/pkg/services/source"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	sources source.Registry
	output  io.Writer
	rootCmd *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Sources source.Registry
	Output  io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{
		sources: opts.Sources,
		output:  opts.Output,
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// ExecuteContext runs the CLI under ctx, which carries the process logger.
func (cli *CLI) ExecuteContext(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access-atlas",
		Short: "Access risk review tool",
	}

	cmd.AddCommand(commands.NewReviewCmd(cli.sources, cli.output))
	cmd.AddCommand(commands.NewIdentitiesCmd(cli.sources))
	cmd.AddCommand(commands.NewFactorsCmd())
	cmd.AddCommand(commands.NewPlatformsCmd(cli.sources))

	return cmd
}
