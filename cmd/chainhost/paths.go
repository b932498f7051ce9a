package main

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/justyntemme/vst3host/pkg/config"
)

func newPathsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Show or edit the plugin search paths",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the effective search paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.SearchPaths) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "# platform defaults")
			}
			for _, p := range a.cfg.EffectiveSearchPaths() {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <dir>...",
		Short: "Add search paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.SearchPaths) == 0 {
				// Editing starts from the defaults the user currently sees.
				a.cfg.SetSearchPaths(config.DefaultSearchPaths(runtime.GOOS))
			}
			for _, dir := range args {
				abs, err := filepath.Abs(config.ExpandPath(dir))
				if err != nil {
					return err
				}
				if !a.cfg.AddSearchPath(abs) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s already present\n", abs)
				}
			}
			return a.saveConfig()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <dir>...",
		Short: "Remove search paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.SearchPaths) == 0 {
				a.cfg.SetSearchPaths(config.DefaultSearchPaths(runtime.GOOS))
			}
			for _, dir := range args {
				if a.cfg.RemoveSearchPath(dir) {
					continue
				}
				abs, err := filepath.Abs(config.ExpandPath(dir))
				if err != nil || !a.cfg.RemoveSearchPath(abs) {
					return fmt.Errorf("%s is not a search path", dir)
				}
			}
			return a.saveConfig()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Go back to the platform default search paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cfg.ClearSearchPaths()
			return a.saveConfig()
		},
	})
	return cmd
}
