// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	dmlog "github.com/daymark-app/daymark/internal/log"
)

// StatusFile is the snapshot name under the data dir.
const StatusFile = "status.json"

// writeStatus replaces status.json atomically: readers see the old or the new
// snapshot, never a partial one.
func writeStatus(ctx context.Context, dataDir string, st *Status) error {
	logger := dmlog.FromContext(ctx)

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dataDir, StatusFile)

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o640))
	if err != nil {
		return fmt.Errorf("create pending status file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending status file")
		}
	}()

	enc := json.NewEncoder(pendingFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("write status data: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace status file: %w", err)
	}
	return nil
}

// ReadStatus loads the last snapshot from dataDir.
func ReadStatus(dataDir string) (*Status, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, StatusFile))
	if err != nil {
		return nil, err
	}
	var st Status
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode %s: %w", StatusFile, err)
	}
	return &st, nil
}
