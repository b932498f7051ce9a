package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPluginsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "plugins",
		Aliases: []string{"ls"},
		Short:   "List the plugin catalog",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := a.engine()
			if err := a.catalog(coordinator(cmd), e); err != nil {
				return err
			}
			plugins := e.AvailablePlugins()
			if len(plugins) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No plugins found")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tMANUFACTURER\tVERSION\tFORMAT\tARCH\tI/O\tFILE")
			for _, d := range plugins {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%s\n",
					d.Name, d.Manufacturer, d.Version, d.Format, d.Arch, d.NumInputs, d.NumOutputs, d.FileOrIdentifier)
			}
			return tw.Flush()
		},
	}
}
