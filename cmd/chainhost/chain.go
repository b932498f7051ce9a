package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/justyntemme/vst3host/pkg/host"
)

func newChainCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Show or edit the saved plugin chain",
	}
	cmd.AddCommand(
		newChainShowCmd(a),
		newChainAddCmd(a),
		newChainRemoveCmd(a),
		newChainMoveCmd(a),
		newChainBypassCmd(a),
		newChainClearCmd(a),
	)
	return cmd
}

// editChain opens the saved chain, applies edit and writes the result back.
func (a *app) editChain(cmd *cobra.Command, edit func(ctx context.Context, e *host.Engine) error) error {
	ctx := coordinator(cmd)
	e, err := a.openChain(ctx)
	if err != nil {
		return err
	}
	if err := edit(ctx, e); err != nil {
		return err
	}
	if err := e.SaveState(ctx, a.cfg.StateFile); err != nil {
		return err
	}
	return printChain(cmd, e)
}

func printChain(cmd *cobra.Command, e *host.Engine) error {
	infos := e.Chain()
	if len(infos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Chain is empty")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tMANUFACTURER\tFORMAT\tSTATUS")
	for i, info := range infos {
		status := "active"
		switch {
		case info.Fault != "":
			status = "bypassed (" + info.Fault + ")"
		case info.Bypassed:
			status = "bypassed"
		}
		d := info.Descriptor
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, d.Name, d.Manufacturer, d.Format, status)
	}
	return tw.Flush()
}

func newChainShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openChain(coordinator(cmd))
			if err != nil {
				return err
			}
			return printChain(cmd, e)
		},
	}
}

func newChainAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name|file>",
		Short: "Append a plugin from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editChain(cmd, func(ctx context.Context, e *host.Engine) error {
				for _, d := range e.AvailablePlugins() {
					if strings.EqualFold(d.Name, args[0]) {
						_, err := e.Load(ctx, d)
						return err
					}
				}
				file := args[0]
				if abs, err := filepath.Abs(file); err == nil {
					file = abs
				}
				_, err := e.LoadByIdentifier(ctx, file)
				return err
			})
		},
	}
}

func newChainRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <index>",
		Aliases: []string{"rm"},
		Short:   "Remove the plugin at index",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return a.editChain(cmd, func(ctx context.Context, e *host.Engine) error {
				return e.Unload(ctx, index)
			})
		},
	}
}

func newChainMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <from> <to>",
		Short: "Move a plugin to a new position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			to, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			return a.editChain(cmd, func(ctx context.Context, e *host.Engine) error {
				return e.Move(ctx, from, to)
			})
		},
	}
}

func newChainBypassCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bypass <index> [on|off]",
		Short: "Set or toggle bypass for a plugin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return a.editChain(cmd, func(ctx context.Context, e *host.Engine) error {
				if index >= e.NumPlugins() {
					return fmt.Errorf("index %d out of range (chain has %d plugins)", index, e.NumPlugins())
				}
				on := !e.IsBypassed(index)
				if len(args) == 2 {
					switch strings.ToLower(args[1]) {
					case "on", "true", "1":
						on = true
					case "off", "false", "0":
						on = false
					default:
						return fmt.Errorf("bypass must be on or off, got %q", args[1])
					}
				}
				e.Bypass(index, on)
				return nil
			})
		},
	}
}

func newChainClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every plugin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editChain(cmd, func(ctx context.Context, e *host.Engine) error {
				return e.ClearAll(ctx)
			})
		},
	}
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return i, nil
}
