package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/release-radar/internal/service"
)

func newServiceCommand(opts *globalOptions, manager *service.Manager) *cobra.Command {
	unit := service.DefaultUnitConfig()

	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the radar systemd unit",
	}
	cmd.PersistentFlags().StringVar(&unit.User, "user", unit.User, "user the unit runs as")
	cmd.PersistentFlags().StringVar(&unit.WorkingDir, "dir", unit.WorkingDir, "working directory of the unit")

	resolve := func(cmd *cobra.Command) (service.UnitConfig, error) {
		cfg := unit
		if cmd.Flags().Changed("config") {
			abs, err := filepath.Abs(opts.configPath)
			if err != nil {
				return cfg, err
			}
			cfg.ConfigPath = abs
		}
		return cfg, nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "unit",
			Short: "Print the unit file without installing it",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := resolve(cmd)
				if err != nil {
					return err
				}
				content, err := service.RenderUnit(cfg)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), content)
				return nil
			},
		},
		&cobra.Command{
			Use:   "install",
			Short: "Install, enable and start the unit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := resolve(cmd)
				if err != nil {
					return err
				}
				if err := manager.Install(commandContext(cmd), cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s installed at %s\n", service.UnitName, manager.UnitPath)
				return nil
			},
		},
		&cobra.Command{
			Use:   "uninstall",
			Short: "Stop, disable and remove the unit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := manager.Uninstall(commandContext(cmd)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s removed\n", service.UnitName)
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the unit state as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				status, err := manager.Status(commandContext(cmd))
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			},
		},
	)
	return cmd
}
