// Package journal keeps an append-only record of delete transitions.
// Hard deletes cannot be undone, so the journal is the operator's only
// trace of what was removed and by whom.
package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Baaaki/travel-log/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entry is one delete transition. ActorID is nil for public operations.
type Entry struct {
	EntryID        string    `json:"entry_id"`
	Entity         string    `json:"entity"`
	EntityID       uint      `json:"entity_id"`
	ActorID        *uint     `json:"actor_id,omitempty"`
	Hard           bool      `json:"hard"`
	CascadedVisits int64     `json:"cascaded_visits"`
	At             time.Time `json:"at"`
}

// Journal is a JSON-lines file guarded by a mutex
type Journal struct {
	filePath string
	file     *os.File
	mu       sync.Mutex
}

// Open creates the journal file (and its directory) if needed
func Open(filePath string) (*Journal, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &Journal{
		filePath: filePath,
		file:     file,
	}, nil
}

// Record appends an entry and syncs it to disk. EntryID and At are
// filled in when empty.
func (j *Journal) Record(entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	if _, err := j.file.Write(append(data, '\n')); err != nil {
		logger.Log.Error("Journal: failed to write entry",
			zap.String("entry_id", entry.EntryID),
			zap.Error(err),
		)
		return err
	}

	if err := j.file.Sync(); err != nil {
		logger.Log.Error("Journal: failed to sync to disk",
			zap.String("entry_id", entry.EntryID),
			zap.Error(err),
		)
		return err
	}

	logger.Log.Debug("Journal: entry recorded",
		zap.String("entry_id", entry.EntryID),
		zap.String("entity", entry.Entity),
		zap.Uint("entity_id", entry.EntityID),
		zap.Bool("hard", entry.Hard),
	)

	return nil
}

// ReadAll returns every entry in file order
func (j *Journal) ReadAll() ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.readAllUnsafe()
}

// Prune drops entries recorded before olderThan and returns how many were removed
func (j *Journal) Prune(olderThan time.Time) (int, error) {
	start := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()

	all, err := j.readAllUnsafe()
	if err != nil {
		return 0, err
	}

	kept := make([]Entry, 0, len(all))
	for _, entry := range all {
		if !entry.At.Before(olderThan) {
			kept = append(kept, entry)
		}
	}
	removed := len(all) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	// Close the current file before replacing it
	if err := j.file.Close(); err != nil {
		return 0, err
	}

	tempFile := j.filePath + ".tmp"
	if err := writeEntries(tempFile, kept); err != nil {
		logger.Log.Error("Journal: failed to write temp file",
			zap.String("temp_file", tempFile),
			zap.Error(err),
		)
		if reopenErr := j.reopen(); reopenErr != nil {
			return 0, reopenErr
		}
		return 0, err
	}

	if err := os.Rename(tempFile, j.filePath); err != nil {
		logger.Log.Error("Journal: failed to rename temp file",
			zap.String("temp_file", tempFile),
			zap.Error(err),
		)
		if reopenErr := j.reopen(); reopenErr != nil {
			return 0, reopenErr
		}
		return 0, err
	}

	// Appends must go to the new file, not the unlinked one
	if err := j.reopen(); err != nil {
		return 0, err
	}

	logger.Log.Info("Journal: pruned",
		zap.Int("removed", removed),
		zap.Int("remaining", len(kept)),
		zap.Duration("duration", time.Since(start)),
	)

	return removed, nil
}

func (j *Journal) reopen() error {
	file, err := os.OpenFile(j.filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		logger.Log.Error("Journal: failed to reopen file",
			zap.String("file_path", j.filePath),
			zap.Error(err),
		)
		return err
	}
	j.file = file
	return nil
}

func writeEntries(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// readAllUnsafe reads all entries without locking. Malformed lines are skipped.
func (j *Journal) readAllUnsafe() ([]Entry, error) {
	file, err := os.Open(j.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	entries := []Entry{}
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, scanner.Err()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
