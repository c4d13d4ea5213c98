package notify

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisNotifier publishes every event on a channel and keeps a capped list
// of recent events per recipient.
type RedisNotifier struct {
	rdb       *redis.Client
	channel   string
	inboxSize int64
}

func NewRedisNotifier(rdb *redis.Client, channel string, inboxSize int64) *RedisNotifier {
	if inboxSize <= 0 {
		inboxSize = 100
	}
	return &RedisNotifier{rdb: rdb, channel: channel, inboxSize: inboxSize}
}

func inboxKey(userID uint64) string {
	return fmt.Sprintf("notifications:%d", userID)
}

func (r *RedisNotifier) Notify(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	key := inboxKey(ev.UserID)
	pipe := r.rdb.TxPipeline()
	pipe.Publish(ctx, r.channel, data)
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, r.inboxSize-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisNotifier) Recent(ctx context.Context, userID uint64, n int64) ([]Event, error) {
	if n <= 0 || n > r.inboxSize {
		n = r.inboxSize
	}
	raw, err := r.rdb.LRange(ctx, inboxKey(userID), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(raw))
	for _, item := range raw {
		var ev Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}
