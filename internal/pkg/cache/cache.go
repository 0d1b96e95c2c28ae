package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ShiinaKin/random-img/internal/pkg/env"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache initializes the connection to the Redis cache server
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to Redis cache: %v", err)
	} else {
		log.Printf("Successfully connected to Redis cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value in the cache with the given key and expiration time
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// Expire resets the TTL of an existing key
func Expire(key string, expiration time.Duration) error {
	return GetClient().Expire(ctx, key, expiration).Err()
}

// Delete removes a value from the cache by key
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}

// DeleteByPrefix removes every key below the given prefix. This walks the
// keyspace with SCAN, so the cost grows with the total number of keys, not
// with the number of matches.
func DeleteByPrefix(prefix string) (int, error) {
	deleted := 0
	iter := GetClient().Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := GetClient().Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, err
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// Store adapts the package level helpers to the collaborator interface the
// service layer consumes, so tests can swap in an in-memory fake.
type Store struct{}

// Get reports a miss with ok=false instead of surfacing redis.Nil.
func (Store) Get(key string) (string, bool, error) {
	val, err := Get(key)
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (Store) Set(key, value string, ttl time.Duration) error { return Set(key, value, ttl) }
func (Store) Expire(key string, ttl time.Duration) error     { return Expire(key, ttl) }
func (Store) Delete(key string) error                        { return Delete(key) }
func (Store) DeleteByPrefix(prefix string) (int, error)      { return DeleteByPrefix(prefix) }
