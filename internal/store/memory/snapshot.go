package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

const (
	keyMenuItems  = "menuItems"
	keyCategories = "categories"
	keySettings   = "settings"
	keyCustomers  = "customers"
	keyUsers      = "users"
	keyOrders     = "orders"
	keyCounters   = "counters"
)

// snapshotDir mirrors each collection to <dir>/<key>.json.
type snapshotDir struct {
	dir string
}

func newSnapshotDir(dir string) (*snapshotDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &snapshotDir{dir: dir}, nil
}

func (d *snapshotDir) path(key string) string {
	return filepath.Join(d.dir, key+".json")
}

func (d *snapshotDir) write(key string, value any) error {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(d.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), d.path(key))
}

// load replaces dst with the stored collection. A missing file leaves dst
// untouched; a corrupt one resets it to fallback.
func load[T any](d *snapshotDir, key string, dst *T, fallback func() T) {
	raw, ok := d.read(key)
	if !ok {
		return
	}
	var decoded T
	if err := json.Unmarshal(raw, &decoded); err != nil {
		log.Printf("[memory-store] WARN: corrupt %s snapshot: %v, using defaults", key, err)
		*dst = fallback()
		return
	}
	*dst = decoded
}

// loadMerged decodes the stored value over the current content of dst, so
// fields missing from the file keep their current value.
func loadMerged[T any](d *snapshotDir, key string, dst *T, fallback func() T) {
	raw, ok := d.read(key)
	if !ok {
		return
	}
	merged := *dst
	if err := json.Unmarshal(raw, &merged); err != nil {
		log.Printf("[memory-store] WARN: corrupt %s snapshot: %v, using defaults", key, err)
		*dst = fallback()
		return
	}
	*dst = merged
}

func (d *snapshotDir) read(key string) ([]byte, bool) {
	raw, err := os.ReadFile(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false
	}
	if err != nil {
		log.Printf("[memory-store] WARN: read %s: %v", key, err)
		return nil, false
	}
	return raw, true
}
