package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/tinygot/pkg/transfer"
)

const version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := newCLI()
	root := &cobra.Command{
		Use:           "got",
		Short:         "Content-addressed object, ref and index plumbing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger().Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default: ~/.config/got/config.yaml)")
	flags.StringP("repo", "C", ".", "run as if started in this directory")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.BoolP("verbose", "v", false, "shorthand for --log-level=debug with console output")
	flags.Int("concurrency", transfer.DefaultConcurrency, "parallel object copies for fetch/push")
	flags.Int("cache-size", -1, "object cache entries (-1 uses the repository config)")

	c.v.BindPFlag("repo", flags.Lookup("repo"))
	c.v.BindPFlag("log_level", flags.Lookup("log-level"))
	c.v.BindPFlag("verbose", flags.Lookup("verbose"))
	c.v.BindPFlag("concurrency", flags.Lookup("concurrency"))
	c.v.BindPFlag("cache_size", flags.Lookup("cache-size"))

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(c),
		newHashObjectCmd(c),
		newCatFileCmd(c),
		newUpdateRefCmd(c),
		newSymbolicRefCmd(c),
		newGetRefCmd(c),
		newShowRefCmd(c),
		newDeleteRefCmd(c),
		newBranchCmd(c),
		newTagCmd(c),
		newStageCmd(c),
		newUnstageCmd(c),
		newLsFilesCmd(c),
		newRemoteCmd(c),
		newFetchObjectsCmd(c),
		newPushObjectsCmd(c),
		newBundleCmd(c),
		newVerifyCmd(c),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "got %s\n", version)
		},
	}
}
