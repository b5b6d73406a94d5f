package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/gosimple/slug"

	"spotafy/internal/services"
)

// ErrImportInProgress reports that another import holds the lock for a term.
var ErrImportInProgress = fmt.Errorf("%w: import already in progress", services.ErrConflict)

const lockRetryDelay = 250 * time.Millisecond

// LockPath returns the lock file guarding imports of term. Terms that slug to
// the same value share a lock.
func LockPath(dir, term string) string {
	key := slug.Make(term)
	if key == "" {
		key = strings.ToLower(strings.TrimSpace(term))
	}
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(dir, "import-"+hex.EncodeToString(sum[:])[:16]+".lock")
}

// lockTerm takes the per-term lock. With wait set it blocks until the lock is
// free or ctx ends; otherwise a held lock yields ErrImportInProgress.
func lockTerm(ctx context.Context, dir, term string, wait bool) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "import", "lock", "create lock directory", err)
	}
	lock := flock.New(LockPath(dir, term))

	var (
		ok  bool
		err error
	)
	if wait {
		ok, err = lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = lock.TryLock()
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrTransient, "import", "lock", lock.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrImportInProgress, term)
	}
	return func() { _ = lock.Unlock() }, nil
}
