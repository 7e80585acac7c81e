// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daymark-app/daymark/internal/config"
	"github.com/daymark-app/daymark/internal/persistence/sqlite"
	"github.com/daymark-app/daymark/internal/store"
	"github.com/daymark-app/daymark/internal/version"
)

func newStorageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Inspect the history database",
	}
	cmd.AddCommand(newStorageVerifyCmd())
	return cmd
}

func newStorageVerifyCmd() *cobra.Command {
	var (
		path       string
		configPath string
		mode       string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run a SQLite integrity check on the history database",
		Long: "Runs PRAGMA quick_check (or integrity_check with --mode full) against the\n" +
			"sqlite history database. Exits 1 when corruption is found, 2 on bad input.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode = strings.ToLower(strings.TrimSpace(mode))
			if mode != "quick" && mode != "full" {
				return &exitError{code: 2, err: fmt.Errorf("invalid mode %q: use quick or full", mode)}
			}
			if path == "" {
				p, err := sqlitePathFromConfig(configPath)
				if err != nil {
					return &exitError{code: 2, err: err}
				}
				path = p
			}
			if _, err := os.Stat(path); err != nil {
				return &exitError{code: 2, err: fmt.Errorf("database %s: %w", path, err)}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "verifying %s (mode: %s)\n", path, mode)
			issues, err := sqlite.VerifyIntegrity(path, mode)
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			if len(issues) > 0 {
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s\n", issue)
				}
				return &exitError{code: 1, err: fmt.Errorf("integrity check found %d issue(s)", len(issues))}
			}
			fmt.Fprintln(out, "integrity ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "database file (defaults to the configured data dir)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")
	cmd.Flags().StringVar(&mode, "mode", "quick", "check mode: quick or full")
	return cmd
}

func sqlitePathFromConfig(configPath string) (string, error) {
	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(cfg.Store.Backend, store.BackendSQLite) {
		return "", errors.New("store backend is " + cfg.Store.Backend + ", not sqlite")
	}
	return store.SQLitePath(cfg.DataDir), nil
}
