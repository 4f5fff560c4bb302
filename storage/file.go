package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"ewintr.nl/tubedigest/model"
)

const (
	seenFile    = "last_videos.json"
	pendingFile = "pending_jobs.json"
)

// File keeps both ledgers as human readable JSON documents in one directory.
type File struct {
	dir string
}

func NewFile(dir string) *File {
	return &File{dir: dir}
}

func (f *File) LoadSeen() (model.SeenSet, error) {
	seen := model.NewSeenSet()
	ok, err := f.load(seenFile, &seen)
	if err != nil {
		return nil, err
	}
	if !ok {
		return model.NewSeenSet(), nil
	}

	return seen, nil
}

func (f *File) SaveSeen(seen model.SeenSet) error {
	return f.save(seenFile, seen)
}

func (f *File) LoadPending() (model.PendingSet, error) {
	pending := model.NewPendingSet()
	ok, err := f.load(pendingFile, &pending)
	if err != nil {
		return nil, err
	}
	if !ok {
		return model.NewPendingSet(), nil
	}

	return pending, nil
}

func (f *File) SavePending(pending model.PendingSet) error {
	return f.save(pendingFile, pending)
}

// load reports false for a missing or corrupt file, the caller starts with
// an empty ledger then. The decoder may fill part of the target before it
// fails, so the partially decoded value must be discarded.
func (f *File) load(name string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		// a corrupt ledger is treated the same as a missing one
		return false, nil
	}

	return true, nil
}

func (f *File) save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := filepath.Join(f.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	return nil
}
