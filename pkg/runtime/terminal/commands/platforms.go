package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/de-tools/access-atlas/pkg/services/source"
)

type PlatformsCmd struct {
	sources source.Registry
}

func NewPlatformsCmd(sources source.Registry) *cobra.Command {
	pc := &PlatformsCmd{sources: sources}
	cmd := &cobra.Command{
		Use:   "platforms",
		Short: "List registered source platforms",
		RunE:  pc.run,
	}

	return cmd
}

func (pc *PlatformsCmd) run(cmd *cobra.Command, args []string) error {
	platforms := pc.sources.ListPlatforms()
	if len(platforms) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No source platforms registered")
		return nil
	}

	sort.Strings(platforms)
	fmt.Fprintf(cmd.OutOrStdout(), "Registered source platforms:\n%s\n", strings.Join(platforms, "\n"))

	return nil
}
