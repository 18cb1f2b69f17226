package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

const (
	storeDirMode = 0o700
	batchFileMod = 0o600
	batchFileExt = ".toml"
)

// Store keeps one TOML file per failed batch under root.
type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.DeadLetterStore = (*Store)(nil)

type batchFile struct {
	ID       string    `toml:"id"`
	ItemIDs  []string  `toml:"item_ids"`
	Error    string    `toml:"error"`
	FailedAt time.Time `toml:"failed_at"`
}

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

func (s *Store) Record(ctx context.Context, batch domain.FailedBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForID(batch.ID)
	if err != nil {
		return err
	}

	data, err := toml.Marshal(toBatchFile(batch))
	if err != nil {
		return fmt.Errorf("encode failed batch %q: %w", batch.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.root, storeDirMode); err != nil {
		return fmt.Errorf("create dead letter directory: %w", err)
	}
	if err := os.WriteFile(path, data, batchFileMod); err != nil {
		return fmt.Errorf("write failed batch %q: %w", batch.ID, err)
	}

	return nil
}

// List returns stored batches, oldest first.
func (s *Store) List(ctx context.Context) ([]domain.FailedBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dead letter directory: %w", err)
	}

	batches := make([]domain.FailedBatch, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != batchFileExt {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read failed batch %q: %w", entry.Name(), err)
		}
		var stored batchFile
		if err := toml.Unmarshal(data, &stored); err != nil {
			return nil, fmt.Errorf("decode failed batch %q: %w", entry.Name(), err)
		}
		batches = append(batches, stored.toDomain())
	}

	sort.SliceStable(batches, func(i, j int) bool {
		if batches[i].FailedAt.Equal(batches[j].FailedAt) {
			return batches[i].ID < batches[j].ID
		}
		return batches[i].FailedAt.Before(batches[j].FailedAt)
	})
	return batches, nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForID(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed batch %q: %w", id, domain.ErrDeadLetterNotFound)
		}
		return fmt.Errorf("delete failed batch %q: %w", id, err)
	}

	return nil
}

func (s *Store) pathForID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", errors.New("dead letter id is empty")
	}
	if strings.ContainsAny(trimmed, `/\`) || trimmed == "." || trimmed == ".." {
		return "", fmt.Errorf("invalid dead letter id %q", id)
	}

	return filepath.Join(s.root, trimmed+batchFileExt), nil
}

func toBatchFile(batch domain.FailedBatch) batchFile {
	ids := make([]string, 0, len(batch.ItemIDs))
	for _, id := range batch.ItemIDs {
		ids = append(ids, string(id))
	}

	return batchFile{
		ID:       batch.ID,
		ItemIDs:  ids,
		Error:    batch.Error,
		FailedAt: batch.FailedAt.UTC(),
	}
}

func (f batchFile) toDomain() domain.FailedBatch {
	ids := make([]domain.ItemID, 0, len(f.ItemIDs))
	for _, id := range f.ItemIDs {
		ids = append(ids, domain.ItemID(id))
	}

	return domain.FailedBatch{
		ID:       f.ID,
		ItemIDs:  ids,
		Error:    f.Error,
		FailedAt: f.FailedAt,
	}
}
