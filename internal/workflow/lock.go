package workflow

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is the advisory lock taken in the output directory.
const LockFileName = ".recorder2rc.lock"

// ErrOutputLocked is returned when another conversion holds the output lock.
var ErrOutputLocked = errors.New("output directory is in use by another conversion")

func lockOutputDir(outputDir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(outputDir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, outputDir)
	}
	return lock, nil
}
