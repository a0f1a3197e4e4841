// Package cli implements the strata command line.
package cli

import (
	"io"

	"github.com/spf13/cobra"
)

const versionString = "1.0.0"

type cliOptions struct {
	configPath string
	verbose    bool
	baseDir    string
	entryPoint string
	limit      int
}

func newRootCmd(opts *cliOptions, factory runtimeFactory, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "strata",
		Short:         "Load a source tree of objects and run its entry point",
		Version:       versionString,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: titleStyle.Render("strata") + subtitleStyle.Render(" - an object runtime for Starlark source trees") + `

Every directory under the base directory is a package and every file
defines one object named after the file. Objects are Classes, Singletons
or Enums, may extend each other and import each other across packages.`,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ./"+defaultConfigName+" when present)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&opts.baseDir, "base-dir", "", "override the configured base directory")

	runCmd := &cobra.Command{
		Use:   "run [entry-point]",
		Short: "Load the tree and invoke Main on the entry point singleton",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.entryPoint = args[0]
			}
			return runRun(cmd, opts, factory)
		},
	}
	runCmd.Flags().StringVarP(&opts.entryPoint, "entry", "e", "", "entry point location, e.g. app.Main")

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Load the tree without invoking it and print the package tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, opts, factory)
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the entry point whenever a source file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts, factory)
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts, factory)
		},
	}
	historyCmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "number of runs to show (0 for all)")

	root.AddCommand(runCmd, inspectCmd, watchCmd, historyCmd)
	return root
}
