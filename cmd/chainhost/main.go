// Command chainhost scans for audio-effect plugins, edits a persisted plugin chain and
// renders test signals through it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/justyntemme/vst3host/pkg/config"
	"github.com/justyntemme/vst3host/pkg/debug"
	"github.com/justyntemme/vst3host/pkg/host"
	"github.com/justyntemme/vst3host/pkg/host/dispatch"
)

// Plugin SDKs must be driven from the thread that loaded them; the main goroutine stays on
// the main thread and acts as the coordinator.
func init() {
	runtime.LockOSThread()
}

func main() {
	os.Exit(submain())
}

func submain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "chainhost:", err)
		return 1
	}
	return 0
}

// app is the state shared by every command, filled in before a command runs.
type app struct {
	configPath string
	logLevel   string

	cfg config.Config
	log *debug.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "chainhost",
		Short:         "Audio-effect plugin chain host",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default is the user config dir)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error, off")

	root.AddCommand(newScanCmd(a))
	root.AddCommand(newPluginsCmd(a))
	root.AddCommand(newPathsCmd(a))
	root.AddCommand(newChainCmd(a))
	root.AddCommand(newRenderCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.configPath == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return err
		}
		a.configPath = path
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	levelName := cfg.LogLevel
	if a.logLevel != "" {
		levelName = a.logLevel
	}
	level, err := debug.ParseLevel(levelName)
	if err != nil {
		return err
	}
	a.log = debug.New(cmd.ErrOrStderr(), level)
	debug.SetDefault(a.log)
	return nil
}

func (a *app) saveConfig() error {
	return config.Save(a.configPath, a.cfg)
}

func (a *app) engine() *host.Engine {
	return host.New(append(host.FromConfig(a.cfg), host.WithLogger(a.log))...)
}

// coordinator tags the command context for the main goroutine.
func coordinator(cmd *cobra.Command) context.Context {
	return dispatch.WithCoordinator(cmd.Context())
}

// catalog makes sure the engine has a catalog, from the cache file or a fresh scan.
func (a *app) catalog(ctx context.Context, e *host.Engine) error {
	if err := e.LoadCache(); err != nil {
		a.log.Warn("ignoring catalog cache: %v", err)
	}
	if e.IsCacheValid() {
		return nil
	}
	return e.ScanSync(ctx, true)
}

// openChain builds an engine holding the chain from the state file.
func (a *app) openChain(ctx context.Context) (*host.Engine, error) {
	e := a.engine()
	if err := a.catalog(ctx, e); err != nil {
		return nil, err
	}
	report, _, err := e.LoadState(ctx, a.cfg.StateFile)
	if err != nil {
		return nil, err
	}
	for _, s := range report.Skipped {
		a.log.Warn("could not restore %s: %v", s.Name, s.Err)
	}
	return e, nil
}
