package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	rdb    *redis.Client
	opts   Options
	prefix string
}

// ConnectRedis parses url, pings the server and returns a store on top of it.
func ConnectRedis(url string, opts Options) (*RedisStore, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(o)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStore(rdb, opts), nil
}

func NewRedisStore(rdb *redis.Client, opts Options) *RedisStore {
	return &RedisStore{rdb: rdb, opts: opts.withDefaults(), prefix: "readcast:qa:"}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisStore) Append(ctx context.Context, sessionID string, turns ...Turn) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	if len(turns) == 0 {
		return nil
	}
	vals := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
		vals = append(vals, string(b))
	}
	key := r.key(sessionID)
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, vals...)
		p.LTrim(ctx, key, int64(-r.opts.MaxTurns), -1)
		p.Expire(ctx, key, r.opts.TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append session turns: %w", err)
	}
	return nil
}

func (r *RedisStore) History(ctx context.Context, sessionID string) ([]Turn, error) {
	raw, err := r.rdb.LRange(ctx, r.key(sessionID), 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session turns: %w", err)
	}
	out := make([]Turn, 0, len(raw))
	for _, s := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
