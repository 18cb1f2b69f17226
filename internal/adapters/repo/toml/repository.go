package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

const (
	RecentPathKey  = "recent.path"
	RecentLimitKey = "recent.limit"

	stateFileMode   = 0o600
	stateDirMode    = 0o700
	stateConfigDir  = ".config/keepster"
	stateConfigFile = "recent.toml"
	tempFilePattern = ".recent-*.toml.tmp"
)

// RecentCollectionRepository persists the most recently used collections.
type RecentCollectionRepository struct {
	path  string
	limit int
	now   func() time.Time
	mu    *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.RecentCollectionRepository = (*RecentCollectionRepository)(nil)

func NewRecentCollectionRepository(cfg *viper.Viper) (*RecentCollectionRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg.SetDefault(RecentPathKey, filepath.Join(homeDir, stateConfigDir, stateConfigFile))
	cfg.SetDefault(RecentLimitKey, domain.DefaultRecentCollectionLimit)

	path := strings.TrimSpace(cfg.GetString(RecentPathKey))
	if path == "" {
		return nil, errors.New("recent collections path is empty")
	}
	path, err = normalizePath(path)
	if err != nil {
		return nil, err
	}

	limit := cfg.GetInt(RecentLimitKey)
	if limit <= 0 {
		limit = domain.DefaultRecentCollectionLimit
	}

	return &RecentCollectionRepository{
		path:  path,
		limit: limit,
		now:   time.Now,
		mu:    lockForPath(path),
	}, nil
}

func (r *RecentCollectionRepository) Path() string {
	return r.path
}

func (r *RecentCollectionRepository) Limit() int {
	return r.limit
}

func (r *RecentCollectionRepository) List(ctx context.Context) ([]domain.CollectionID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	ids := make([]domain.CollectionID, 0, len(file.Collections))
	for _, id := range file.Collections {
		if strings.TrimSpace(id) == "" {
			continue
		}
		ids = append(ids, domain.CollectionID(id))
	}
	if len(ids) > r.limit {
		ids = ids[:r.limit]
	}

	return ids, nil
}

// Save replaces the stored list, keeping at most the configured number of
// entries.
func (r *RecentCollectionRepository) Save(ctx context.Context, ids []domain.CollectionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file := fileSchema{UpdatedAt: r.now().UTC()}
	seen := make(map[domain.CollectionID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || strings.TrimSpace(string(id)) == "" {
			continue
		}
		seen[id] = struct{}{}
		file.Collections = append(file.Collections, string(id))
		if len(file.Collections) == r.limit {
			break
		}
	}

	return r.writeSchema(file)
}

func (r *RecentCollectionRepository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read recent collections file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode recent collections file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizePath(path string) (string, error) {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, rest)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve recent collections path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *RecentCollectionRepository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.path), stateDirMode); err != nil {
		return fmt.Errorf("create recent collections directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode recent collections file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp recent collections file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp recent collections file: %w", err)
	}
	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp recent collections file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp recent collections file: %w", err)
	}

	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace recent collections file: %w", err)
	}
	cleanup = false

	return nil
}
