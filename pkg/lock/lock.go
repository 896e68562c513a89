package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// ErrLockHeld is returned when another invocation already holds the lock for a root.
var ErrLockHeld = errors.New("lock already held")

const markerName = "backup.lock"

// Handle represents exclusive ownership of a working root. It is valid until
// Release is called.
type Handle struct {
	marker   string
	released bool
}

// Acquire takes the exclusive lock for root by creating a marker directory.
// The creation is atomic: exactly one of two racing callers wins, the other
// fails immediately with ErrLockHeld. There is no renewal and no auto-expiry;
// a marker left behind by a crashed process has to be removed by hand.
func Acquire(root string) (*Handle, error) {
	marker := filepath.Join(root, markerName)
	if err := os.Mkdir(marker, 0755); err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLockHeld, marker)
		}
		return nil, fmt.Errorf("creating lock marker %s: %w", marker, err)
	}
	log.Debug().Str("marker", marker).Msg("lock acquired")
	return &Handle{marker: marker}, nil
}

// Release drops the lock. It is idempotent and safe to call on every exit path.
func (h *Handle) Release() {
	if h == nil || h.released {
		return
	}
	if err := os.Remove(h.marker); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("marker", h.marker).Msg("failed to remove lock marker")
		return
	}
	h.released = true
	log.Debug().Str("marker", h.marker).Msg("lock released")
}
