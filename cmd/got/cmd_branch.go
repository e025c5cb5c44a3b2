package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/tinygot/pkg/object"
	"github.com/odvcencio/tinygot/pkg/refs"
	"github.com/odvcencio/tinygot/pkg/repo"
)

func newBranchCmd(c *cli) *cobra.Command {
	var del bool

	cmd := &cobra.Command{
		Use:   "branch [-d] [<name> [<object>]]",
		Short: "List, create or delete branches",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}

			switch {
			case del:
				if len(args) != 1 {
					return fmt.Errorf("branch -d takes exactly one branch name")
				}
				return r.DeleteBranch(args[0])
			case len(args) == 0:
				return listBranches(cmd, r)
			}

			target, err := targetOrHead(r, args[1:])
			if err != nil {
				return err
			}
			return r.CreateBranch(args[0], target)
		},
	}

	cmd.Flags().BoolVarP(&del, "delete", "d", false, "delete the named branch")
	return cmd
}

func listBranches(cmd *cobra.Command, r *repo.Repo) error {
	names, err := r.ListBranches()
	if err != nil {
		return err
	}
	current, err := r.CurrentBranch()
	if err != nil {
		return err
	}
	for _, name := range names {
		marker := "  "
		if "refs/heads/"+name == current {
			marker = "* "
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", marker, name)
	}
	return nil
}

func newTagCmd(c *cli) *cobra.Command {
	var (
		del   bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "tag [-d] [-f] [<name> [<object>]]",
		Short: "List, create or delete tags",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}

			switch {
			case del:
				if len(args) != 1 {
					return fmt.Errorf("tag -d takes exactly one tag name")
				}
				return r.DeleteTag(args[0])
			case len(args) == 0:
				names, err := r.ListTags()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			target, err := targetOrHead(r, args[1:])
			if err != nil {
				return err
			}
			return r.CreateTag(args[0], target, force)
		},
	}

	cmd.Flags().BoolVarP(&del, "delete", "d", false, "delete the named tag")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing tag")
	return cmd
}

// targetOrHead resolves the optional object argument, defaulting to HEAD.
func targetOrHead(r *repo.Repo, args []string) (object.Hash, error) {
	if len(args) > 0 {
		return resolveObject(r, args[0])
	}
	return r.ResolveRef(refs.HEAD)
}
