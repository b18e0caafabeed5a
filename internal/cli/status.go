package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/release-radar/internal/render"
)

func newStatusCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show installed and latest builds for every application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			// Per-app failures are already recorded on the apps themselves.
			if err := rt.session.Start(commandContext(cmd)); err != nil {
				rt.logger.Warn("reconcile finished with errors", "error", err)
			}

			apps := rt.session.Registry.List()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(apps)
			}
			return render.Status(cmd.OutOrStdout(), apps)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print applications as JSON")
	return cmd
}
