package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check object integrity and that every ref resolves to a stored object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.openRepo()
			if err != nil {
				return err
			}

			report, err := r.Verify(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, h := range report.Corrupt {
				fmt.Fprintf(out, "corrupt object %s\n", h)
			}
			for _, name := range report.DanglingRefs {
				fmt.Fprintf(out, "dangling ref %s\n", name)
			}
			for _, name := range report.BrokenRefs {
				fmt.Fprintf(out, "broken ref %s\n", name)
			}
			if !report.OK() {
				return fmt.Errorf("verify: %d corrupt object(s), %d dangling ref(s), %d broken ref(s)",
					len(report.Corrupt), len(report.DanglingRefs), len(report.BrokenRefs))
			}
			fmt.Fprintf(out, "ok: verified %d object(s)\n", report.Checked)
			return nil
		},
	}
}
