package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/tinygot/pkg/object"
	"github.com/odvcencio/tinygot/pkg/repo"
)

func newFetchObjectsCmd(c *cli) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "fetch-objects <remote> [<object>...]",
		Short: "Copy objects missing locally from another repository",
		Long: "Copy objects missing locally from another repository. <remote> is a\n" +
			"configured remote name or the working root of another repository.",
		Args: cobra.MinimumNArgs(1),
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
				err = r.WithRemote(args[0], func(rem *repo.Repo) error {
					hashes, err = rem.Objects.List()
					return err
				})
				if err != nil {
					return err
				}
			}
			if len(hashes) == 0 {
				return fmt.Errorf("no objects given (use --all to fetch everything)")
			}

			n, err := r.FetchObjects(cmd.Context(), args[0], hashes, c.transferOptions()...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fetched %d object(s)\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "fetch every object the remote has")
	return cmd
}

func newPushObjectsCmd(c *cli) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "push-objects <remote> [<object>...]",
		Short: "Copy objects into another repository",
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
			if len(hashes) == 0 {
				return fmt.Errorf("no objects given (use --all to push everything)")
			}

			n, err := r.PushObjects(cmd.Context(), args[0], hashes, c.transferOptions()...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pushed %d object(s)\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "push every local object")
	return cmd
}

func parseHashes(args []string) ([]object.Hash, error) {
	hashes := make([]object.Hash, 0, len(args))
	for _, a := range args {
		h, err := object.ParseHash(a)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}
