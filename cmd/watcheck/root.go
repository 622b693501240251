package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wat-engine/config"
	"github.com/wippyai/wat-engine/report"
	"github.com/wippyai/wat-engine/workspace"
)

// BuildInfo holds build-time version information.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// app is the state shared by all subcommands, filled in before any of them
// runs.
type app struct {
	info       BuildInfo
	cfg        *config.Config
	log        *zap.Logger
	configPath string
	color      string
	debug      bool
}

func newRootCommand(info BuildInfo) *cobra.Command {
	a := &app{info: info, log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "watcheck",
		Short: "Validate, compile and watch WebAssembly text files",
		Long: `watcheck parses WebAssembly text (.wat, .wast) into a lossless syntax tree,
reports syntax errors, unresolved references, duplicate definitions and
arity mismatches, and compiles valid modules to the binary format.

Settings are read from .watcheck.yaml, searched upward from the working
directory, or from the file given with --config.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = a.log.Sync()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&a.color, "color", report.ColorAuto, "colorize output: auto, always, never")

	root.AddCommand(newCheckCommand(a))
	root.AddCommand(newCompileCommand(a))
	root.AddCommand(newWatchCommand(a))
	root.AddCommand(newOutlineCommand(a))
	root.AddCommand(newTokensCommand(a))
	root.AddCommand(newVersionCommand(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	var err error
	if a.debug {
		a.log, err = zap.NewDevelopment()
	} else {
		a.log, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	workspace.SetLogger(a.log)

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	a.cfg, err = config.Resolve(cmd.Context(), a.configPath, wd)
	if err != nil {
		return err
	}
	a.log.Debug("configuration resolved", zap.String("path", a.cfg.Path))
	return a.cfg.CheckVersion(a.info.Version)
}

func (a *app) workspace() (*workspace.Workspace, error) {
	reg, err := a.cfg.Registry()
	if err != nil {
		return nil, err
	}
	return workspace.New(reg,
		workspace.WithLogger(a.log),
		workspace.WithJobs(a.cfg.Jobs),
		workspace.WithMaxSourceBytes(a.cfg.MaxSourceBytes),
		workspace.WithFilter(a.cfg.Apply),
	), nil
}

// reporter returns the reporter for format, or for the configured output
// when format is empty.
func (a *app) reporter(cmd *cobra.Command, format string) (report.Reporter, error) {
	if format == "" {
		format = a.cfg.Output
	}
	styles := report.NewStyles(report.ColorEnabled(a.color, cmd.OutOrStdout()))
	return report.New(format, styles)
}

// roots defaults the path arguments to the working directory.
func roots(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	return args
}
