package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/tinygot/pkg/object"
	"github.com/odvcencio/tinygot/pkg/repo"
)

func newHashObjectCmd(c *cli) *cobra.Command {
	var (
		objType string
		write   bool
		stdin   bool
	)

	cmd := &cobra.Command{
		Use:   "hash-object [-w] [-t type] (--stdin | <file>)",
		Short: "Compute an object id and optionally store the object",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if stdin == (len(args) == 1) {
				return fmt.Errorf("specify exactly one of --stdin or <file>")
			}
			var (
				data []byte
				err  error
			)
			if stdin {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			t := object.ObjectType(objType)
			if t == object.AnyType {
				return fmt.Errorf("object type must not be empty")
			}

			var h object.Hash
			if write {
				r, err := c.openRepo()
				if err != nil {
					return err
				}
				h, err = r.Objects.Write(t, data)
				if err != nil {
					return err
				}
			} else {
				h = object.HashObject(t, data)
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}

	cmd.Flags().StringVarP(&objType, "type", "t", string(object.TypeBlob), "object type")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "store the object in the repository")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "read content from standard input")
	return cmd
}

func newCatFileCmd(c *cli) *cobra.Command {
	var (
		expected string
		showType bool
	)

	cmd := &cobra.Command{
		Use:   "cat-file [-e type | --show-type] <object>",
		Short: "Print the content of a stored object",
		Long: "Print the content of a stored object. <object> is an object id or a ref\n" +
			"name (HEAD, a branch or a tag).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}
			h, err := resolveObject(r, args[0])
			if err != nil {
				return err
			}

			if showType {
				t, _, err := r.Objects.Read(h)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), t)
				return nil
			}

			data, err := r.Objects.Get(h, object.ObjectType(expected))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&expected, "expect", "e", "", "fail unless the object has this type")
	cmd.Flags().BoolVar(&showType, "show-type", false, "print the object type instead of its content")
	return cmd
}

// resolveObject accepts a full object id or anything ResolveRef understands.
func resolveObject(r *repo.Repo, name string) (object.Hash, error) {
	if h, err := object.ParseHash(name); err == nil {
		return h, nil
	}
	return r.ResolveRef(name)
}
