package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BackupStrategy selects how backup file names are formed.
type BackupStrategy string

const (
	// BackupTimestamped appends a UTC timestamp to each backup name.
	BackupTimestamped BackupStrategy = "timestamped"
	// BackupRolling cycles through numbered slots, overwriting the oldest.
	BackupRolling BackupStrategy = "rolling"
	// BackupVersioned counts upward without reuse.
	BackupVersioned BackupStrategy = "versioned"
)

// BackupManager copies the live file aside before destructive saves and
// prunes old copies beyond maxBackups, oldest by modification time first.
type BackupManager struct {
	strategy   BackupStrategy
	maxBackups int
	now        func() time.Time
}

// NewBackupManager creates a manager; maxBackups below 1 keeps a single
// backup.
func NewBackupManager(strategy BackupStrategy, maxBackups int) *BackupManager {
	if maxBackups < 1 {
		maxBackups = 1
	}
	switch strategy {
	case BackupTimestamped, BackupRolling, BackupVersioned:
	default:
		strategy = BackupTimestamped
	}
	return &BackupManager{
		strategy:   strategy,
		maxBackups: maxBackups,
		now:        time.Now,
	}
}

// Create copies path into a new backup and prunes. A missing live file is
// not an error; there is nothing to preserve yet.
func (b *BackupManager) Create(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}

	backupPath, err := b.nextBackupPath(path)
	if err != nil {
		return "", err
	}
	if err := copyFile(path, backupPath); err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	if err := b.prune(path); err != nil {
		return backupPath, fmt.Errorf("backup created but pruning failed: %w", err)
	}
	return backupPath, nil
}

// RestoreLatest replaces path with the newest backup, by modification
// time.
func (b *BackupManager) RestoreLatest(path string) error {
	backups, err := b.list(path)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found for %s", path)
	}
	latest := backups[len(backups)-1]
	if err := copyFile(latest, path); err != nil {
		return fmt.Errorf("failed to restore from %s: %w", latest, err)
	}
	return nil
}

func (b *BackupManager) nextBackupPath(path string) (string, error) {
	switch b.strategy {
	case BackupTimestamped:
		stamp := b.now().UTC().Format("20060102T150405")
		return fmt.Sprintf("%s.bak.%s", path, stamp), nil
	case BackupRolling:
		// Reuse the slot holding the oldest copy.
		oldest, oldestTime := 1, time.Time{}
		for slot := 1; slot <= b.maxBackups; slot++ {
			candidate := fmt.Sprintf("%s.bak.%d", path, slot)
			info, err := os.Stat(candidate)
			if os.IsNotExist(err) {
				return candidate, nil
			}
			if err != nil {
				return "", err
			}
			if oldestTime.IsZero() || info.ModTime().Before(oldestTime) {
				oldest, oldestTime = slot, info.ModTime()
			}
		}
		return fmt.Sprintf("%s.bak.%d", path, oldest), nil
	case BackupVersioned:
		version := 1
		for {
			candidate := fmt.Sprintf("%s.bak.v%d", path, version)
			if _, err := os.Stat(candidate); os.IsNotExist(err) {
				return candidate, nil
			}
			version++
		}
	default:
		return "", fmt.Errorf("unknown backup strategy: %q", b.strategy)
	}
}

// list returns existing backups for path sorted oldest first.
func (b *BackupManager) list(path string) ([]string, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	type backup struct {
		path    string
		modTime time.Time
	}
	var found []backup
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), base+".bak") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, backup{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].modTime.Before(found[j].modTime)
	})

	paths := make([]string, len(found))
	for i, bk := range found {
		paths[i] = bk.path
	}
	return paths, nil
}

func (b *BackupManager) prune(path string) error {
	backups, err := b.list(path)
	if err != nil {
		return err
	}
	for len(backups) > b.maxBackups {
		if err := os.Remove(backups[0]); err != nil {
			return err
		}
		backups = backups[1:]
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
