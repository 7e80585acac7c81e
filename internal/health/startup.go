// SPDX-License-Identifier: MIT

package health

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/daymark-app/daymark/internal/log"
)

// CheckDataDir verifies path exists (creating it if missing) and is writable.
func CheckDataDir(path string) error {
	logger := log.WithComponent("startup-check")

	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create data dir %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Debug().Str("event", "startup.data_dir_ok").Str("path", path).Msg("data directory writable")
	return nil
}
