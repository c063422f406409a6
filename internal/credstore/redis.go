package credstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore stores the pair under "<prefix>token" and "<prefix>userId".
// Keys carry no TTL; expiry is the backend's business.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "storefront:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// DialRedis connects and pings, the way the auth service does at startup.
func DialRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("credstore: redis ping: %w", err)
	}
	return client, nil
}

func (r *RedisStore) key(name string) string {
	return r.prefix + name
}

func (r *RedisStore) Load(ctx context.Context) (Credentials, error) {
	vals, err := r.client.MGet(ctx, r.key(KeyToken), r.key(KeyUserID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Credentials{}, err
	}

	var c Credentials
	if len(vals) == 2 {
		if s, ok := vals[0].(string); ok {
			c.Token = s
		}
		if s, ok := vals[1].(string); ok {
			c.UserID = parseUserID(s)
		}
	}
	return c, nil
}

func (r *RedisStore) Save(ctx context.Context, c Credentials) error {
	if !c.Complete() {
		return ErrIncomplete
	}
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.key(KeyToken), c.Token, 0)
		p.Set(ctx, r.key(KeyUserID), strconv.FormatInt(c.UserID, 10), 0)
		return nil
	})
	return err
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key(KeyToken), r.key(KeyUserID)).Err()
}
