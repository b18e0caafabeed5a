package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config <host>/<app>",
		Short: "Print the configuration a host holds for an application",
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
			if _, err := rt.session.Discovery.Discover(ctx, rt.cfg.Hosts); err != nil {
				return err
			}

			text, err := rt.session.AppConfig(ctx, key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
