package main

import (
	"github.com/spf13/cobra"

	"github.com/hsisomap/hsisomap/logging"
)

// version is set at link time with -ldflags "-X main.version=...".
var version = "dev"

// rootFlags are shared by every subcommand.
type rootFlags struct {
	logLevel  string
	logFormat string
	logSink   string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "hsisomap",
		Short:         "Landmark Isomap for hyperspectral images",
		Long:          `hsisomap embeds hyperspectral image cubes on a low-dimensional manifold with a backbone, kNN graph, landmark geodesics and CMDS.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&f.logFormat, "log-format", "text", "log format (text, json)")
	root.PersistentFlags().StringVar(&f.logSink, "log-sink", "stderr", "log sink (stderr, stdout or a file path)")

	root.AddCommand(
		newRunCmd(f),
		newPCACmd(f),
		newNNCacheCmd(f),
		newVersionCmd(),
	)

	return root
}

// logger builds the logger described by the flags. A flag left at its
// default yields to fallback when fallback is non-empty.
func (f *rootFlags) logger(cmd *cobra.Command, fallback logging.Config) (*logging.Logger, func(), error) {
	cfg := fallback
	flags := cmd.Flags()
	if flags.Changed("log-level") || cfg.Level == "" {
		cfg.Level = f.logLevel
	}
	if flags.Changed("log-format") || cfg.Format == "" {
		cfg.Format = f.logFormat
	}
	if flags.Changed("log-sink") || cfg.Sink == "" {
		cfg.Sink = f.logSink
	}
	l, closer, err := logging.New(cfg)
	if err != nil {
		return nil, func() {}, err
	}

	return l, func() { _ = closer.Close() }, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("hsisomap %s\n", version)
		},
	}
}
