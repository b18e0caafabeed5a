package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/release-radar/internal/render"
)

func newUpdateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <host>/<app>",
		Short: "Update an application and every outdated dependency first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}

			rt, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := commandContext(cmd)
			if err := rt.session.Start(ctx); err != nil {
				rt.logger.Warn("reconcile finished with errors", "error", err)
			}

			if err := rt.session.Orchestrator.UpdateApplication(ctx, key, "cli"); err != nil {
				return fmt.Errorf("updating %s: %w", key, err)
			}

			app, err := rt.session.Registry.Get(key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated: build %s, %s\n",
				key, render.BuildCell(app.CurrentBuild, app.CurrentBuildError), render.StatusCell(app))
			return nil
		},
	}
}
