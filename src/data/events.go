package data

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stake-plus/sevenkey-bot/src/verification"
)

const streamVerifications = "sevenkey.verifications"

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// RedisEvents appends verification events to a capped Redis stream.
type RedisEvents struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewRedisEvents(rdb *redis.Client) *RedisEvents {
	return &RedisEvents{rdb: rdb, stream: streamVerifications, maxLen: 10000}
}

func (r *RedisEvents) Publish(ctx context.Context, ev verification.Event) error {
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: eventValues(ev),
	}).Result()
	return err
}

func eventValues(ev verification.Event) map[string]interface{} {
	return map[string]interface{}{
		"event_id":     uuid.NewString(),
		"kind":         string(ev.Kind),
		"request_id":   strconv.FormatUint(ev.ID, 10),
		"requester_id": ev.RequesterID,
		"actor_id":     ev.ActorID,
		"game":         string(ev.Game),
		"username":     ev.Username,
		"country":      ev.Country,
		"reason":       ev.Reason,
		"at":           ev.At.UTC().Format(time.RFC3339Nano),
	}
}
