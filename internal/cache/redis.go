package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// scanBatch is the COUNT hint for SCAN and the size of each DEL batch.
const scanBatch = 100

// RedisStore keeps entries in Redis under "<prefix>:<namespace>:<key>".
//
// Expiry is delegated to Redis (SET ... PX). Namespace clears and subkey
// removals walk the keyspace with SCAN instead of KEYS so a large cache never
// blocks the Redis server.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client. prefix isolates this application's
// keys from anything else in the same Redis database.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "pastie"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisClient connects to addr and verifies the connection with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisStore) namespacePrefix(namespace string) string {
	return s.prefix + ":" + namespace + ":"
}

func (s *RedisStore) key(namespace, key string) string {
	return s.namespacePrefix(namespace) + key
}

func (s *RedisStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.key(namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: redis get: %w", err)
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	// go-redis treats -1 as KEEPTTL; an already-expired entry is simply not stored.
	if ttl < 0 {
		if err := s.client.Del(ctx, s.key(namespace, key)).Err(); err != nil {
			return fmt.Errorf("cache: redis del: %w", err)
		}
		return nil
	}
	if err := s.client.Set(ctx, s.key(namespace, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, namespace, key string) error {
	if err := s.client.Del(ctx, s.key(namespace, key)).Err(); err != nil {
		return fmt.Errorf("cache: redis del: %w", err)
	}
	pattern := escapeGlob(s.key(namespace, key+Separator)) + "*"
	return s.deleteMatching(ctx, pattern)
}

func (s *RedisStore) Clear(ctx context.Context, namespace string) error {
	return s.deleteMatching(ctx, escapeGlob(s.namespacePrefix(namespace))+"*")
}

func (s *RedisStore) deleteMatching(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, scanBatch).Iterator()

	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("cache: redis del: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: redis scan %q: %w", pattern, err)
	}
	return flush()
}

// escapeGlob quotes the characters Redis MATCH patterns treat specially.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
