// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/daymark-app/daymark/internal/policy"
)

func newLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <file|->",
		Short: "Lint a UI tree JSON file against the monetization guardrails",
		Long: "Lint validates a UI tree against its JSON schema and reports every guardrail\n" +
			"violation. It exits 1 when violations are found and 2 when the tree is invalid.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return &exitError{code: 2, err: err}
			}
			root, err := policy.ParseTree(data)
			if err != nil {
				return &exitError{code: 2, err: err}
			}
			violations := policy.Lint(root)
			out := cmd.OutOrStdout()
			for _, v := range violations {
				fmt.Fprintf(out, "%s: [%s] %s\n", v.Path, v.Rule, v.Message)
			}
			if len(violations) > 0 {
				return &exitError{code: 1, err: fmt.Errorf("%d guardrail violation(s)", len(violations))}
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}
