package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/tinygot/pkg/object"
	"github.com/odvcencio/tinygot/pkg/refs"
)

func newUpdateRefCmd(c *cli) *cobra.Command {
	var noDeref bool

	cmd := &cobra.Command{
		Use:   "update-ref <ref> <object>",
		Short: "Point a ref at an object id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}
			h, err := object.ParseHash(args[1])
			if err != nil {
				return err
			}
			return r.Refs.Update(args[0], refs.Direct(h), !noDeref)
		},
	}

	cmd.Flags().BoolVar(&noDeref, "no-deref", false, "overwrite the ref itself instead of the end of its symbolic chain")
	return cmd
}

func newSymbolicRefCmd(c *cli) *cobra.Command {
	var deref bool

	cmd := &cobra.Command{
		Use:   "symbolic-ref <ref> <target>",
		Short: "Make a ref point at another ref",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}
			return r.Refs.Update(args[0], refs.Symbolic(args[1]), deref)
		},
	}

	cmd.Flags().BoolVar(&deref, "deref", false, "write at the end of the ref's existing symbolic chain")
	return cmd
}

func newGetRefCmd(c *cli) *cobra.Command {
	var noDeref bool

	cmd := &cobra.Command{
		Use:   "get-ref <ref>",
		Short: "Print the value of a ref",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}
			v, err := r.Refs.Get(args[0], !noDeref)
			if err != nil {
				return err
			}
			if v.IsAbsent() {
				return fmt.Errorf("ref %q: %w", args[0], refs.ErrRefNotFound)
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noDeref, "no-deref", false, "print the literal value instead of following symbolic refs")
	return cmd
}

func newShowRefCmd(c *cli) *cobra.Command {
	var noDeref bool

	cmd := &cobra.Command{
		Use:   "show-ref [prefix]",
		Short: "List refs and their values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) > 0 {
				prefix = args[0]
			}
			out := cmd.OutOrStdout()
			for ref, err := range r.Refs.Iter(prefix, !noDeref) {
				if err != nil {
					if ref.Name == "" {
						return err
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
					continue
				}
				fmt.Fprintf(out, "%s %s\n", ref.Value, ref.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noDeref, "no-deref", false, "show literal values instead of following symbolic refs")
	return cmd
}

func newDeleteRefCmd(c *cli) *cobra.Command {
	var noDeref bool

	cmd := &cobra.Command{
		Use:   "delete-ref <ref>",
		Short: "Delete a ref",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}
			return r.Refs.Delete(args[0], !noDeref)
		},
	}

	cmd.Flags().BoolVar(&noDeref, "no-deref", false, "delete the ref itself instead of the end of its symbolic chain")
	return cmd
}
