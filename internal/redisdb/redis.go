package redisdb

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/slugzin/leadflow-backend/internal/model"
)

// ErrNoSnapshot means no usage snapshot has ever been cached for the
// operator.
var ErrNoSnapshot = errors.New("no quota snapshot cached")

type RedisConnection struct {
	rdb *redis.Client
}

func DeclareRedisDataBase(options redis.Options) *RedisConnection {
	rdb := redis.NewClient(&options)
	return &RedisConnection{rdb: rdb}
}

// Close redis connection
func (rc *RedisConnection) Close() {
	if err := rc.rdb.Close(); err != nil {
		panic(err)
	}
}

func snapshotKey(operatorID string) string {
	return "quota_snapshot:" + operatorID
}

// SaveSnapshot overwrites the operator's cached usage snapshot. The TTL
// outlives the daily reset so a stale-but-present snapshot is preferred
// over none.
func (rc *RedisConnection) SaveSnapshot(ctx context.Context, operatorID string, states []model.QuotaState) error {
	payload, err := json.Marshal(states)
	if err != nil {
		return err
	}
	if err := rc.rdb.Set(ctx, snapshotKey(operatorID), payload, 48*time.Hour).Err(); err != nil {
		return errors.New("failed to save quota snapshot into Redis: " + err.Error())
	}
	return nil
}

// GetSnapshot returns the last cached usage snapshot, or ErrNoSnapshot.
func (rc *RedisConnection) GetSnapshot(ctx context.Context, operatorID string) ([]model.QuotaState, error) {
	payload, err := rc.rdb.Get(ctx, snapshotKey(operatorID)).Result()
	if err == redis.Nil {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, errors.New("failed to get quota snapshot from Redis: " + err.Error())
	}

	var states []model.QuotaState
	if err := json.Unmarshal([]byte(payload), &states); err != nil {
		return nil, err
	}
	return states, nil
}
