package android

import (
	"errors"
	"io/fs"
	"os"
)

// Files probes the local filesystem. Directories and dangling symlinks
// count as present.
type Files struct{}

func (Files) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
