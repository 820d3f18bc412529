package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/de-tools/access-atlas/pkg/services/registry"
	"github.com/de-tools/access-atlas/pkg/services/source"
)

type IdentitiesCmd struct {
	profilesPath string
	profile      string
	sources      source.Registry
}

func NewIdentitiesCmd(sources source.Registry) *cobra.Command {
	ic := &IdentitiesCmd{sources: sources}
	cmd := &cobra.Command{
		Use:   "identities",
		Short: "Dump the identity snapshot for a profile",
		RunE:  ic.run,
	}

	cmd.Flags().StringVar(&ic.profilesPath, "profiles", registry.DefaultPath(), "Path to the connection profiles file")
	cmd.Flags().StringVar(&ic.profile, "profile", "", "Connection profile to fetch")

	_ = cmd.MarkFlagRequired("profile")

	return cmd
}

func (ic *IdentitiesCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	profiles, err := registry.NewProfileRegistry(ic.profilesPath)
	if err != nil {
		return fmt.Errorf("failed to load profiles from %s: %w", ic.profilesPath, err)
	}
	profile, err := profiles.GetProfile(ic.profile)
	if err != nil {
		return err
	}

	provider, err := ic.sources.Create(ctx, profile)
	if err != nil {
		return fmt.Errorf("failed to create a provider for platform %s: %w", profile.Platform, err)
	}

	snaps, err := provider.FetchIdentities(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d identities fetched from %s\n", len(snaps), provider.Platform())
	for _, snap := range snaps {
		lastActive := "never"
		if snap.LastActivity != nil {
			lastActive = snap.LastActivity.Format("2006-01-02")
		}
		fmt.Fprintf(out, "%-28s %-6s last active %-10s %d policy documents\n",
			snap.Name, snap.Type, lastActive, len(snap.Policies))
	}

	return nil
}
