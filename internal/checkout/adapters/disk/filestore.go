// Package disk stores order content on the local filesystem.
package disk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fastcopy/printshop/internal/checkout/ports"
)

// FileStore promotes staged uploads into a permanent orders directory. Staged
// paths are relative to the staging root so a database row never encodes an
// absolute host path.
type FileStore struct {
	stagingRoot string
	ordersRoot  string
}

func NewFileStore(stagingRoot, ordersRoot string) *FileStore {
	return &FileStore{stagingRoot: stagingRoot, ordersRoot: ordersRoot}
}

// Promote moves staged content to the permanent orders directory. A repeat
// call for content that already moved reports the permanent name again: a
// settlement can be retried after its transaction rolled back, and the rename
// from the first attempt must not read as lost content.
func (s *FileStore) Promote(_ context.Context, stagedPath, orderCode string) (string, error) {
	src := filepath.Join(s.stagingRoot, filepath.Clean("/"+stagedPath))
	name := orderCode + filepath.Ext(stagedPath)
	dst := filepath.Join(s.ordersRoot, name)

	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if _, dstErr := os.Stat(dst); dstErr == nil {
				return name, nil
			}
			return "", ports.ErrContentMissing
		}
		return "", fmt.Errorf("stat staged content: %w", err)
	}

	if err := os.MkdirAll(s.ordersRoot, 0o755); err != nil {
		return "", fmt.Errorf("create orders directory: %w", err)
	}

	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("promote staged content: %w", err)
	}

	return name, nil
}
