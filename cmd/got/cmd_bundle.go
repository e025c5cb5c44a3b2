package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/tinygot/pkg/transfer"
)

func newBundleCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Move objects between repositories through a file",
	}

	var all bool
	create := &cobra.Command{
		Use:   "create <file> [<object>...]",
		Short: "Write objects to a zstd-compressed bundle file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}
			hashes, err := parseHashes(args[1:])
			if err != nil {
				return err
			}
			if all {
				if hashes, err = r.Objects.List(); err != nil {
					return err
				}
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create bundle: %w", err)
			}
			n, err := transfer.WriteBundle(cmd.Context(), f, r.Objects, hashes)
			if cerr := f.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("create bundle: %w", cerr)
			}
			if err != nil {
				os.Remove(args[0])
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bundled %d object(s) into %s\n", n, args[0])
			return nil
		},
	}
	create.Flags().BoolVar(&all, "all", false, "bundle every local object")

	unbundle := &cobra.Command{
		Use:   "unbundle <file>",
		Short: "Import the objects of a bundle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open bundle: %w", err)
			}
			defer f.Close()

			imported, err := transfer.ReadBundle(cmd.Context(), f, r.Objects)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d object(s)\n", len(imported))
			return nil
		},
	}

	cmd.AddCommand(create, unbundle)
	return cmd
}
