package convo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/andrewckor/kip-ai/internal/log"
)

// ErrCorruptSnapshot indicates persisted state that cannot be decoded.
var ErrCorruptSnapshot = errors.New("corrupt conversation snapshot")

// FileStore persists one JSON snapshot file per domain under a directory.
//
// Writes go through a temp file plus rename, so a crash mid-write never
// leaves a truncated snapshot. A per-domain advisory file lock serializes
// access across processes sharing the directory.
type FileStore struct {
	dir    string
	logger log.Logger
}

// NewFileStore creates the directory if needed and returns the store.
func NewFileStore(dir string, logger log.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating conversation directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Load implements Store. A missing file is an empty conversation, not an
// error.
func (s *FileStore) Load(ctx context.Context, domain string) (*Snapshot, error) {
	unlock, err := s.lock(ctx, domain)
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := os.ReadFile(s.path(domain))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Snapshot{Version: SchemaVersion}, nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return &snap, nil
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, domain string, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	unlock, err := s.lock(ctx, domain)
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := os.CreateTemp(s.dir, "kip_*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path(domain)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Clear implements Store. Clearing an absent domain is a no-op.
func (s *FileStore) Clear(ctx context.Context, domain string) error {
	unlock, err := s.lock(ctx, domain)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(s.path(domain)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	return nil
}

// Domains lists every domain with a persisted snapshot, sorted.
func (s *FileStore) Domains(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, "kip_*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	domains := make([]string, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		domains = append(domains, strings.TrimSuffix(strings.TrimPrefix(name, "kip_"), ".json"))
	}
	sort.Strings(domains)
	return domains, nil
}

func (s *FileStore) path(domain string) string {
	return filepath.Join(s.dir, "kip_"+domain+".json")
}

// lockRetryDelay is the poll interval while waiting for the advisory lock.
const lockRetryDelay = 25 * time.Millisecond

// lock takes the per-domain advisory lock and returns the release function.
func (s *FileStore) lock(ctx context.Context, domain string) (func(), error) {
	fl := flock.New(s.path(domain) + ".lock")
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("locking snapshot: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("locking snapshot for %s: lock not acquired", domain)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("releasing snapshot lock failed", "domain", domain, "error", err)
		}
	}, nil
}
