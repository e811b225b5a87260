package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// PartSuffix marks files still being written. The interrupt handler removes
// anything carrying it.
const PartSuffix = ".part"

// WriteFileAtomic writes data to path+".part" and renames it into place, so
// a crash never leaves a truncated output file behind.
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	tmp := path + PartSuffix
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
