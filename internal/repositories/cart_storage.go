package repositories

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// cartKey is the fixed key the serialized cart lives under in a client's storage namespace.
const cartKey = "cart"

func storageKey(cartID string) string {
	return cartID + ":" + cartKey
}

// CartStorage defines the durable storage the cart is written to on every mutation.
// Load returns nil data and no error when nothing has been stored yet.
type CartStorage interface {
	Load(ctx context.Context, cartID string) ([]byte, error)
	Save(ctx context.Context, cartID string, data []byte) error
}

// MockCartStorage is an in-memory implementation of CartStorage.
type MockCartStorage struct {
	values map[string][]byte
	mu     sync.RWMutex
}

// NewMockCartStorage creates a new instance of MockCartStorage.
func NewMockCartStorage() *MockCartStorage {
	return &MockCartStorage{
		values: make(map[string][]byte),
	}
}

func (s *MockCartStorage) Load(_ context.Context, cartID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[storageKey(cartID)]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *MockCartStorage) Save(_ context.Context, cartID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[storageKey(cartID)] = append([]byte(nil), data...)
	return nil
}

// RedisCartStorage keeps carts in Redis with a sliding expiry.
type RedisCartStorage struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCartStorage verifies the connection and returns a Redis-backed CartStorage.
func NewRedisCartStorage(ctx context.Context, rdb *redis.Client, ttl time.Duration) (*RedisCartStorage, error) {
	if rdb == nil {
		return nil, errors.New("redis client must be non-nil")
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisCartStorage{rdb: rdb, ttl: ttl}, nil
}

func (s *RedisCartStorage) Load(ctx context.Context, cartID string) ([]byte, error) {
	val, err := s.rdb.Get(ctx, storageKey(cartID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		log.Printf("Error loading cart %s from redis: %v", cartID, err)
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return val, nil
}

func (s *RedisCartStorage) Save(ctx context.Context, cartID string, data []byte) error {
	if err := s.rdb.Set(ctx, storageKey(cartID), data, s.ttl).Err(); err != nil {
		log.Printf("Error saving cart %s to redis: %v", cartID, err)
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

var (
	_ CartStorage = (*MockCartStorage)(nil)
	_ CartStorage = (*RedisCartStorage)(nil)
)
