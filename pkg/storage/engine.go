package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ghsync/pkg/logger"
)

// Options configures an Engine.
type Options struct {
	Path             string
	BackupStrategy   BackupStrategy
	MaxBackups       int
	Autosave         bool
	AutosaveInterval time.Duration
	// FallbackFormats are extensions tried in order when the primary file
	// is absent.
	FallbackFormats []string
}

// Engine holds the run's records in memory and persists them to one
// file. All access is serialized behind a single mutex which also guards
// the dirty flag, so autosave and explicit saves never race.
type Engine struct {
	path    string
	codec   Codec
	backups *BackupManager
	logger  logger.Logger

	fallbackFormats []string

	mu      sync.Mutex
	records []Record
	dirty   bool

	autosaveInterval time.Duration
	stopAutosave     chan struct{}
	autosaveDone     chan struct{}
}

// NewEngine creates an Engine for opts.Path. The codec is chosen by the
// path's extension.
func NewEngine(opts Options, log logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	codec, err := CodecFor(opts.Path)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	e := &Engine{
		path:            opts.Path,
		codec:           codec,
		backups:         NewBackupManager(opts.BackupStrategy, opts.MaxBackups),
		logger:          log,
		fallbackFormats: opts.FallbackFormats,
	}

	if opts.Autosave {
		interval := opts.AutosaveInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		e.autosaveInterval = interval
		e.stopAutosave = make(chan struct{})
		e.autosaveDone = make(chan struct{})
		go e.autosaveLoop()
	}

	return e, nil
}

// Load reads the persisted records. A corrupt primary file triggers one
// restore-from-backup retry; an absent one cascades through the fallback
// extensions before settling on an empty list.
func (e *Engine) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.codec.Read(e.path)
	if err == nil {
		e.records = records
		e.dirty = false
		e.logger.InfoWithFields("storage loaded", map[string]interface{}{
			"path":    e.path,
			"records": len(records),
		})
		return nil
	}

	if os.IsNotExist(err) {
		return e.loadFallbacksLocked()
	}

	// Structural corruption. Restore the newest backup and retry once.
	e.logger.WarnWithFields("storage file corrupt, attempting backup restore", map[string]interface{}{
		"path":  e.path,
		"error": err.Error(),
	})
	if restoreErr := e.backups.RestoreLatest(e.path); restoreErr != nil {
		e.logger.ErrorWithFields("backup restore failed, starting empty", map[string]interface{}{
			"path":  e.path,
			"error": restoreErr.Error(),
		})
		e.records = nil
		e.dirty = false
		return nil
	}

	records, err = e.codec.Read(e.path)
	if err != nil {
		e.logger.ErrorWithFields("restored backup also unreadable, starting empty", map[string]interface{}{
			"path":  e.path,
			"error": err.Error(),
		})
		e.records = nil
		e.dirty = false
		return nil
	}

	e.records = records
	e.dirty = false
	e.logger.InfoWithFields("storage restored from backup", map[string]interface{}{
		"path":    e.path,
		"records": len(records),
	})
	return nil
}

func (e *Engine) loadFallbacksLocked() error {
	base := strings.TrimSuffix(e.path, filepath.Ext(e.path))
	for _, ext := range e.fallbackFormats {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		candidate := base + ext
		if candidate == e.path {
			continue
		}
		codec, err := CodecFor(candidate)
		if err != nil {
			continue
		}
		records, err := codec.Read(candidate)
		if err != nil {
			continue
		}
		e.records = records
		// Imported from an alternate format; persist in the primary one.
		e.dirty = true
		e.logger.InfoWithFields("storage loaded from fallback format", map[string]interface{}{
			"path":    candidate,
			"records": len(records),
		})
		return nil
	}

	e.records = nil
	e.dirty = false
	e.logger.InfoWithFields("no storage file found, starting empty", map[string]interface{}{
		"path": e.path,
	})
	return nil
}

// Add appends one record.
func (e *Engine) Add(rec Record) {
	e.mu.Lock()
	e.records = append(e.records, rec)
	e.dirty = true
	e.mu.Unlock()
}

// AddBatch appends records in order.
func (e *Engine) AddBatch(recs []Record) {
	if len(recs) == 0 {
		return
	}
	e.mu.Lock()
	e.records = append(e.records, recs...)
	e.dirty = true
	e.mu.Unlock()
}

// Update replaces the first record matching predicate and reports whether
// one matched.
func (e *Engine) Update(predicate func(Record) bool, rec Record) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, existing := range e.records {
		if predicate(existing) {
			e.records[i] = rec
			e.dirty = true
			return true
		}
	}
	return false
}

// Remove deletes all records matching predicate and returns how many were
// removed.
func (e *Engine) Remove(predicate func(Record) bool) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.records[:0]
	removed := 0
	for _, rec := range e.records {
		if predicate(rec) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	e.records = kept
	if removed > 0 {
		e.dirty = true
	}
	return removed
}

// Query returns copies of records matching predicate.
func (e *Engine) Query(predicate func(Record) bool) []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Record
	for _, rec := range e.records {
		if predicate(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// All returns a snapshot of every record.
func (e *Engine) All() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Record, len(e.records))
	copy(out, e.records)
	return out
}

// Len reports the record count.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.records)
}

// Save persists the records if dirty, optionally preceded by a backup.
// It reports whether a write happened.
func (e *Engine) Save(backup bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveLocked(backup)
}

func (e *Engine) saveLocked(backup bool) (bool, error) {
	if !e.dirty {
		return false, nil
	}

	if backup {
		if backupPath, err := e.backups.Create(e.path); err != nil {
			e.logger.WarnWithFields("backup failed, saving anyway", map[string]interface{}{
				"path":  e.path,
				"error": err.Error(),
			})
		} else if backupPath != "" {
			e.logger.DebugWithFields("backup created", map[string]interface{}{
				"backup": backupPath,
			})
		}
	}

	if err := e.codec.Write(e.path, e.records); err != nil {
		return false, fmt.Errorf("failed to save storage: %w", err)
	}
	e.dirty = false
	e.logger.DebugWithFields("storage saved", map[string]interface{}{
		"path":    e.path,
		"records": len(e.records),
	})
	return true, nil
}

// autosaveLoop persists dirty state on a ticker without backups; backups
// are reserved for explicit and exit saves to bound I/O.
func (e *Engine) autosaveLoop() {
	defer close(e.autosaveDone)
	ticker := time.NewTicker(e.autosaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := e.Save(false); err != nil {
				e.logger.ErrorWithFields("autosave failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		case <-e.stopAutosave:
			return
		}
	}
}

// Close stops autosave and performs the final save. A clean run gets a
// backup so the last known-good state survives a possibly-partial later
// write; an errored run saves without one.
func (e *Engine) Close(clean bool) error {
	if e.stopAutosave != nil {
		close(e.stopAutosave)
		<-e.autosaveDone
		e.stopAutosave = nil
	}
	_, err := e.Save(clean)
	return err
}
