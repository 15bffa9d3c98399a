package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix     = "user:"
	usernameKeyPrefix = "username:"
)

// RedisStore はユーザーを JSON ドキュメントとして Redis に保存します。
// username:<name> キーが ID への索引で、SETNX により一意性を保証します。
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// GetUserByUsername はユーザー名の完全一致で検索します。存在しない場合は nil を返します。
func (s *RedisStore) GetUserByUsername(ctx context.Context, userName string) (*User, error) {
	id, err := s.rdb.Get(ctx, usernameKey(userName)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return s.load(ctx, id)
}

// GetUserByID は ID で検索します。存在しない場合は nil を返します。
func (s *RedisStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	normalized, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, normalized)
}

// AddUser はユーザーを登録します。索引キーの確保に失敗した場合は ErrUsernameTaken を返します。
func (s *RedisStore) AddUser(ctx context.Context, in NewUser) (*User, error) {
	user := in.build()
	payload, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}

	ok, err := s.rdb.SetNX(ctx, usernameKey(user.UserName), user.ID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve username: %w", err)
	}
	if !ok {
		return nil, ErrUsernameTaken
	}

	if err := s.rdb.Set(ctx, userKey(user.ID), payload, 0).Err(); err != nil {
		// 索引だけが残らないように解放する
		_ = s.rdb.Del(ctx, usernameKey(user.UserName)).Err()
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *RedisStore) load(ctx context.Context, id string) (*User, error) {
	data, err := s.rdb.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	return &user, nil
}

func userKey(id string) string {
	return userKeyPrefix + id
}

func usernameKey(name string) string {
	return usernameKeyPrefix + name
}
