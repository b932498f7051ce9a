package main

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/vst3host/pkg/host"
	"github.com/justyntemme/vst3host/pkg/host/dispatch"
	"github.com/justyntemme/vst3host/pkg/host/events"
)

func newScanCmd(a *app) *cobra.Command {
	var noCache, watch bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the search paths and update the plugin catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e := a.engine()
			if !noCache {
				if err := e.LoadCache(); err != nil {
					a.log.Warn("ignoring catalog cache: %v", err)
				}
			}

			loop := dispatch.NewLoop(0, a.log.Named("loop"))
			loop.Start(ctx)
			defer loop.Close()

			if err := runScan(ctx, cmd, e, loop, func(c context.Context) error {
				if noCache {
					return e.RefreshCache(c)
				}
				return e.Scan(c, true)
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d plugins in catalog\n", len(e.AvailablePlugins()))

			if !watch && !a.cfg.WatchSearchPaths {
				return nil
			}
			return watchAndRescan(ctx, cmd, e, loop)
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "ignore the catalog cache and rescan everything")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep watching the search paths and rescan on change")
	return cmd
}

// runScan starts a pass on the loop and steps it to completion with a progress spinner.
func runScan(ctx context.Context, cmd *cobra.Command, e *host.Engine, loop *dispatch.Loop, start func(context.Context) error) error {
	if err := loop.Do(ctx, start); err != nil {
		return err
	}

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	spin.Suffix = " scanning"
	spin.Start()
	defer spin.Stop()

	g, gctx := errgroup.WithContext(ctx)
	finished := make(chan struct{})
	g.Go(func() error {
		defer close(finished)
		return e.RunScan(gctx, loop)
	})
	g.Go(func() error {
		tick := time.NewTicker(100 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-finished:
				return nil
			case <-gctx.Done():
				return nil
			case <-tick.C:
				done, total := e.ScanProgress()
				spin.Lock()
				spin.Suffix = fmt.Sprintf(" scanning %d/%d", done, total)
				spin.Unlock()
			}
		}
	})
	return g.Wait()
}

// watchAndRescan refreshes the catalog every time the search paths change, until ctx ends.
func watchAndRescan(ctx context.Context, cmd *cobra.Command, e *host.Engine, loop *dispatch.Loop) error {
	sub, cancel := e.Subscribe()
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.Watch(gctx) })
	g.Go(func() error {
		fmt.Fprintln(cmd.OutOrStdout(), "watching search paths, press Ctrl-C to stop")
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev := <-sub:
				if ev.Kind != events.CacheInvalidated {
					continue
				}
				// Let a burst of file events settle before rescanning.
				settle := time.NewTimer(250 * time.Millisecond)
				select {
				case <-settle.C:
				case <-gctx.Done():
					settle.Stop()
					return nil
				}
				drain(sub)
				fmt.Fprintf(cmd.OutOrStdout(), "change in %s, rescanning\n", ev.Message)
				if err := runScan(gctx, cmd, e, loop, e.RefreshCache); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "rescan:", err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d plugins in catalog\n", len(e.AvailablePlugins()))
			}
		}
	})
	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func drain(sub <-chan events.Event) {
	for {
		select {
		case <-sub:
		default:
			return
		}
	}
}
