package persist

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"

	"github.com/kaledh4/daily-alpha-loop/internal/utils"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	UseTLS   bool
}

// RedisStore persists namespaced entries in Redis, for deployments where
// several fetcher instances share one last-known-good view.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

func NewRedisStore(cfg RedisConfig, namespace string) *RedisStore {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}
	return &RedisStore{client: redis.NewClient(opts), namespace: namespace}
}

func (s *RedisStore) key(key string) string {
	return fmt.Sprintf("%s:%s", s.namespace, key)
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), data, 0).Err()
}

// Get implements Store. Connection errors and corrupt payloads both read
// as absent; this store is convenience storage, not a source of truth.
func (s *RedisStore) Get(ctx context.Context, key string, out interface{}) bool {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		if utils.Debug {
			utils.Logger.Printf("redis get %q: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		if utils.Debug {
			utils.Logger.Printf("discarding corrupt entry %q: %v", key, err)
		}
		return false
	}
	return true
}

// Remove implements Store.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
