package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	allocationKeyPrefix = "allocation:"
)

// Store は資産配分を Redis に保存します。
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore は Store を作成します。ttl が 0 の場合は期限なしで保存します。
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get は資産配分を取得します。存在しない場合は nil を返します。
func (s *Store) Get(ctx context.Context, userID string) (*Allocation, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID is required")
	}
	data, err := s.rdb.Get(ctx, allocationKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var allocation Allocation
	if err := json.Unmarshal(data, &allocation); err != nil {
		return nil, err
	}
	return &allocation, nil
}

// Upsert は資産配分を保存します（存在しない場合は作成）。
func (s *Store) Upsert(ctx context.Context, allocation *Allocation) error {
	if allocation == nil {
		return fmt.Errorf("allocation is nil")
	}
	if allocation.UserID == "" {
		return fmt.Errorf("allocation.UserID is required")
	}
	if allocation.Stocks+allocation.Funds+allocation.Bonds != 100 {
		return fmt.Errorf("allocation for %s does not sum to 100", allocation.UserID)
	}
	now := time.Now().UTC()
	if allocation.CreatedAt.IsZero() {
		allocation.CreatedAt = now
	}
	allocation.UpdatedAt = now

	payload, err := json.Marshal(allocation)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, allocationKey(allocation.UserID), payload, s.ttl).Err()
}

func allocationKey(userID string) string {
	return allocationKeyPrefix + userID
}
