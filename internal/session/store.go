// Package session はサーバー側セッションレコードの保存を提供します。
// クッキーには不透明なセッションIDのみを載せ、内容は Redis に保持します。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "sess:"

// Record はセッションの内容です。UserID が空なら匿名セッションです。
type Record struct {
	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Authenticated は認証済みセッションかどうかを返します。
func (r *Record) Authenticated() bool {
	return r != nil && r.UserID != ""
}

// Store はセッションレコードの永続化を行います。
type Store interface {
	// Get はレコードを返します。存在しない場合は nil を返します。
	Get(ctx context.Context, id string) (*Record, error)
	Save(ctx context.Context, id string, record *Record) error
	Delete(ctx context.Context, id string) error
}

// RedisStore は Store の Redis 実装です。
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore は RedisStore を作成します。ttl が 0 以下の場合は期限なしです。
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get はセッションを取得します。
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, nil
	}
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &record, nil
}

// Save はセッションを保存し、有効期限を更新します。
func (s *RedisStore) Save(ctx context.Context, id string, record *Record) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.rdb.Set(ctx, sessionKey(id), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete はセッションを削除します。存在しなくてもエラーにはしません。
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// NewID は推測困難なセッションIDを生成します。
func NewID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
