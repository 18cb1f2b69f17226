package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

const (
	DefaultPrefix = "keepster:deadletter:"
	pingTimeout   = 5 * time.Second
)

// Store keeps failed batches in a Redis hash keyed by batch id, with a
// sorted set ordering them by failure time.
type Store struct {
	client *goredis.Client
	prefix string
}

var _ ports.DeadLetterStore = (*Store)(nil)

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type storedBatch struct {
	ID       string    `json:"id"`
	ItemIDs  []string  `json:"item_ids"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewStoreFromClient(client, cfg.Prefix), nil
}

func NewStoreFromClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) batchesKey() string {
	return s.prefix + "batches"
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) Record(ctx context.Context, batch domain.FailedBatch) error {
	if batch.ID == "" {
		return errors.New("dead letter id is empty")
	}

	ids := make([]string, 0, len(batch.ItemIDs))
	for _, id := range batch.ItemIDs {
		ids = append(ids, string(id))
	}
	data, err := json.Marshal(storedBatch{
		ID:       batch.ID,
		ItemIDs:  ids,
		Error:    batch.Error,
		FailedAt: batch.FailedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal failed batch: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.batchesKey(), batch.ID, data)
	pipe.ZAdd(ctx, s.indexKey(), goredis.Z{Score: float64(batch.FailedAt.UnixMilli()), Member: batch.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record failed batch: %w", err)
	}

	return nil
}

// List returns stored batches, oldest first.
func (s *Store) List(ctx context.Context) ([]domain.FailedBatch, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list failed batch ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	values, err := s.client.HMGet(ctx, s.batchesKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load failed batches: %w", err)
	}

	batches := make([]domain.FailedBatch, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Index entry without a payload; skip it.
			continue
		}
		var stored storedBatch
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return nil, fmt.Errorf("unmarshal failed batch %q: %w", ids[i], err)
		}
		itemIDs := make([]domain.ItemID, 0, len(stored.ItemIDs))
		for _, id := range stored.ItemIDs {
			itemIDs = append(itemIDs, domain.ItemID(id))
		}
		batches = append(batches, domain.FailedBatch{
			ID:       stored.ID,
			ItemIDs:  itemIDs,
			Error:    stored.Error,
			FailedAt: stored.FailedAt,
		})
	}

	return batches, nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	removed := pipe.HDel(ctx, s.batchesKey(), id)
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove failed batch %q: %w", id, err)
	}
	if removed.Val() == 0 {
		return fmt.Errorf("failed batch %q: %w", id, domain.ErrDeadLetterNotFound)
	}

	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
