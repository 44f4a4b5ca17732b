package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	watchLockDirName   = ".watch.lock"
	watchLockOwnerFile = "owner.json"
)

// WatchLock marks a directory as claimed by one watcher process so that
// two watchers cannot race to convert the same files. The lock is a
// directory because mkdir is atomic on every supported filesystem.
type WatchLock struct {
	lockDir string
}

type watchLockOwner struct {
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

func AcquireWatchLock(dir string) (WatchLock, error) {
	target := strings.TrimSpace(dir)
	if target == "" {
		return WatchLock{}, fmt.Errorf("watch directory is required")
	}

	lockDir := filepath.Join(target, watchLockDirName)
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if os.IsExist(err) {
			ownerPath := filepath.Join(lockDir, watchLockOwnerFile)
			var owner watchLockOwner
			if readErr := ReadJSON(ownerPath, &owner); readErr == nil && owner.PID > 0 && owner.CreatedAt != "" {
				return WatchLock{}, fmt.Errorf(
					"directory is already being watched: %s (pid=%d created_at=%s host=%s)",
					target, owner.PID, owner.CreatedAt, owner.Hostname,
				)
			}
			return WatchLock{}, fmt.Errorf("directory is already being watched: %s", target)
		}
		return WatchLock{}, fmt.Errorf("acquire watch lock for %s: %w", target, err)
	}

	owner := watchLockOwner{
		PID:       os.Getpid(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	ownerPath := filepath.Join(lockDir, watchLockOwnerFile)
	if err := WriteJSON(ownerPath, owner); err != nil {
		_ = os.Remove(lockDir)
		return WatchLock{}, fmt.Errorf("write watch lock owner for %s: %w", target, err)
	}

	return WatchLock{lockDir: lockDir}, nil
}

func (l WatchLock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, watchLockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release watch lock %s: %w", l.lockDir, err)
	}
	return nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
