package poolstate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Cache is the key-value side of the write-through pair.
type Cache interface {
	SetRobot(ctx context.Context, state *RobotState) error
	GetRobot(ctx context.Context, robotID string) (*RobotState, error)
	GetAllRobotIDs(ctx context.Context) ([]string, error)
	RemoveRobot(ctx context.Context, robotID string) error
	FlushAll(ctx context.Context) error
	Ping(ctx context.Context) error
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func robotKey(robotID string) string {
	return fmt.Sprintf("robopool:robot:%s", robotID)
}

const allRobotsKey = "robopool:robots"

func (r *RedisStore) SetRobot(ctx context.Context, state *RobotState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, robotKey(state.RobotID), data, 0)
	pipe.SAdd(ctx, allRobotsKey, state.RobotID)
	_, err = pipe.Exec(ctx)
	return err
}

// GetRobot returns nil, nil when the robot is not cached.
func (r *RedisStore) GetRobot(ctx context.Context, robotID string) (*RobotState, error) {
	data, err := r.client.Get(ctx, robotKey(robotID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state RobotState
	return &state, json.Unmarshal(data, &state)
}

func (r *RedisStore) GetAllRobotIDs(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, allRobotsKey).Result()
}

func (r *RedisStore) RemoveRobot(ctx context.Context, robotID string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, robotKey(robotID))
	pipe.SRem(ctx, allRobotsKey, robotID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) FlushAll(ctx context.Context) error {
	ids, err := r.GetAllRobotIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		r.RemoveRobot(ctx, id)
	}
	return r.client.Del(ctx, allRobotsKey).Err()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
