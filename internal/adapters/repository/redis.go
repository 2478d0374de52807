package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/atomicvault/vaultpulse/pkg/metrics"
)

// RedisStore implements Store on Redis hashes.
//
// Each record is one hash at <prefix>:<collection>:<key>; a set at
// <prefix>:idx:<collection> tracks membership for TopN/All/Count. HINCRBY
// provides the atomic get-default-add-store that increments require under
// concurrent handlers.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisOption applies a configuration option to the RedisStore.
type RedisOption func(*redisConfig)

type redisConfig struct {
	addr     string
	password string
	db       int
	prefix   string
	timeout  time.Duration
}

// WithRedisAddr sets the Redis server address.
func WithRedisAddr(addr string) RedisOption {
	return func(c *redisConfig) {
		if addr != "" {
			c.addr = addr
		}
	}
}

// WithRedisPassword sets the server password.
func WithRedisPassword(password string) RedisOption {
	return func(c *redisConfig) {
		c.password = password
	}
}

// WithRedisDB selects the logical database.
func WithRedisDB(db int) RedisOption {
	return func(c *redisConfig) {
		if db >= 0 {
			c.db = db
		}
	}
}

// WithKeyPrefix namespaces every key written by the store.
func WithKeyPrefix(prefix string) RedisOption {
	return func(c *redisConfig) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithRedisTimeout sets dial/read/write timeouts.
func WithRedisTimeout(d time.Duration) RedisOption {
	return func(c *redisConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts ...RedisOption) (*RedisStore, error) {
	cfg := &redisConfig{
		addr:    "localhost:6379",
		prefix:  "vault",
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.addr,
		Password:     cfg.password,
		DB:           cfg.db,
		DialTimeout:  cfg.timeout,
		ReadTimeout:  cfg.timeout,
		WriteTimeout: cfg.timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return &RedisStore{client: client, prefix: cfg.prefix}, nil
}

func (s *RedisStore) recordKey(collection, key string) string {
	return s.prefix + ":" + collection + ":" + key
}

func (s *RedisStore) indexKey(collection string) string {
	return s.prefix + ":idx:" + collection
}

// Get returns the record for key, or (nil, false, nil) if absent.
func (s *RedisStore) Get(ctx context.Context, collection, key string) (Record, bool, error) {
	defer observe("get", time.Now())
	fields, err := s.client.HGetAll(ctx, s.recordKey(collection, key)).Result()
	if err != nil {
		metrics.RecordStoreError()
		return nil, false, fmt.Errorf("%w: hgetall: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	return Record(fields), true, nil
}

// Upsert merges patch into the record, creating it if absent.
func (s *RedisStore) Upsert(ctx context.Context, collection, key string, patch Record) error {
	defer observe("upsert", time.Now())
	if len(patch) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(patch))
	for f, v := range patch {
		values[f] = v
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.recordKey(collection, key), values)
	pipe.SAdd(ctx, s.indexKey(collection), key)
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("%w: hset: %v", ErrUnavailable, err)
	}
	return nil
}

// Increment atomically adds delta to a numeric field via HINCRBY.
func (s *RedisStore) Increment(ctx context.Context, collection, key, field string, delta int64) (int64, error) {
	defer observe("increment", time.Now())
	next, err := s.client.HIncrBy(ctx, s.recordKey(collection, key), field, delta).Result()
	if err != nil {
		metrics.RecordStoreError()
		return 0, fmt.Errorf("%w: hincrby: %v", ErrUnavailable, err)
	}
	if err := s.client.SAdd(ctx, s.indexKey(collection), key).Err(); err != nil {
		metrics.RecordStoreError()
		return 0, fmt.Errorf("%w: sadd: %v", ErrUnavailable, err)
	}
	return next, nil
}

// Delete removes the record and reports whether one was removed. DEL's
// removed-key count makes the report atomic with the removal itself.
func (s *RedisStore) Delete(ctx context.Context, collection, key string) (bool, error) {
	defer observe("delete", time.Now())
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.recordKey(collection, key))
	pipe.SRem(ctx, s.indexKey(collection), key)
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RecordStoreError()
		return false, fmt.Errorf("%w: del: %v", ErrUnavailable, err)
	}
	return del.Val() > 0, nil
}

// TopN returns up to n records ordered by the numeric field descending.
func (s *RedisStore) TopN(ctx context.Context, collection, field string, n int) ([]Entry, error) {
	defer observe("topn", time.Now())
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	keys, err := s.members(ctx, collection)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		v, err := s.client.HGet(ctx, s.recordKey(collection, key), field).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				v = 0
			} else {
				metrics.RecordStoreError()
				return nil, fmt.Errorf("%w: hget: %v", ErrUnavailable, err)
			}
		}
		entries = append(entries, Entry{Key: key, Value: v})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// All returns every record in the collection, ordered by key for stability.
func (s *RedisStore) All(ctx context.Context, collection string) ([]KeyedRecord, error) {
	defer observe("all", time.Now())
	keys, err := s.members(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]KeyedRecord, 0, len(keys))
	for _, key := range keys {
		fields, err := s.client.HGetAll(ctx, s.recordKey(collection, key)).Result()
		if err != nil {
			metrics.RecordStoreError()
			return nil, fmt.Errorf("%w: hgetall: %v", ErrUnavailable, err)
		}
		if len(fields) == 0 {
			// Index member without a hash; record was deleted out of band.
			continue
		}
		out = append(out, KeyedRecord{Key: key, Record: Record(fields)})
	}
	return out, nil
}

// Count returns the number of records in the collection.
func (s *RedisStore) Count(ctx context.Context, collection string) (int, error) {
	defer observe("count", time.Now())
	n, err := s.client.SCard(ctx, s.indexKey(collection)).Result()
	if err != nil {
		metrics.RecordStoreError()
		return 0, fmt.Errorf("%w: scard: %v", ErrUnavailable, err)
	}
	return int(n), nil
}

// Close releases the client connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) members(ctx context.Context, collection string) ([]string, error) {
	keys, err := s.client.SMembers(ctx, s.indexKey(collection)).Result()
	if err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("%w: smembers: %v", ErrUnavailable, err)
	}
	sort.Strings(keys)
	return keys, nil
}
