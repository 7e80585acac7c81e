// SPDX-License-Identifier: MIT

// Command daymark serves Florida county signals and lints UI trees against
// the monetization guardrails.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daymark-app/daymark/internal/version"
)

// exitError carries a process exit code through cobra without printing
// cobra's usage banner.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "daymark",
		Short:         "A calm reference point for today",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newScoreCmd(),
		newLintCmd(),
		newHealthcheckCmd(),
		newStorageCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		code := 1
		if ee, ok := err.(*exitError); ok {
			code = ee.code
		}
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return code
	}
	return 0
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
