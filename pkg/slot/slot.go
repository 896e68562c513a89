package slot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the fixed name of the single local snapshot slot under the
// working root. There is exactly one slot; snapshots are not kept side by side
// locally.
const DirName = "current"

// ErrSnapshotNotFound is returned by Resolve when the slot holds no snapshot.
var ErrSnapshotNotFound = errors.New("no local snapshot")

// Path returns the slot location under root.
func Path(root string) string {
	return filepath.Join(root, DirName)
}

// Prepare wipes and recreates the slot so a new dump starts from an empty
// directory. A missing slot is not an error; a removal that is blocked is.
func Prepare(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("clearing snapshot slot %s: %w", path, err)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("creating snapshot slot %s: %w", path, err)
	}
	return nil
}

// Resolve picks the snapshot directory a restore reads from. A non-empty
// override is used verbatim, otherwise the fixed slot path. Resolve never
// mutates the directory, it only checks that one exists.
func Resolve(slotPath, override string) (string, error) {
	path := slotPath
	if override != "" {
		path = override
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrSnapshotNotFound, path)
		}
		return "", fmt.Errorf("checking snapshot %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrSnapshotNotFound, path)
	}
	return path, nil
}
