package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newStageCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stage <path>...",
		Short: "Store files as blobs and record them in the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}
			staged, err := r.Stage(args)
			if err != nil {
				return err
			}
			for _, f := range staged {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", f.Hash, f.Path)
			}
			return nil
		},
	}
}

func newUnstageCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "unstage <path>...",
		Short: "Remove paths from the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}
			return r.Unstage(args)
		},
	}
}

func newLsFilesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ls-files",
		Short: "List index entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}
			entries, err := r.Index.Read()
			if err != nil {
				return err
			}
			paths := make([]string, 0, len(entries))
			for p := range entries {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", entries[p], p)
			}
			return nil
		},
	}
}
