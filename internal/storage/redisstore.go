package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/PoluyanbIch/pollquizbot/internal/service"
)

const defaultKeyPrefix = "quizbot:score"

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "connect to redis at %s", cfg.Address)
	}
	return client, nil
}

// RedisScoreStore keeps each (user, module) record in a hash with "score" and
// "total" fields, incremented with HINCRBY inside MULTI/EXEC.
type RedisScoreStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisScoreStore(client redis.Cmdable) *RedisScoreStore {
	return &RedisScoreStore{client: client, prefix: defaultKeyPrefix}
}

func (s *RedisScoreStore) key(userID int64, module string) string {
	return fmt.Sprintf("%s:%d:%s", s.prefix, userID, module)
}

func (s *RedisScoreStore) RecordAnswer(ctx context.Context, userID int64, module string, correct bool) (service.ScoreRecord, error) {
	inc := int64(0)
	if correct {
		inc = 1
	}
	key := s.key(userID, module)

	var scoreCmd, totalCmd *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		scoreCmd = pipe.HIncrBy(ctx, key, "score", inc)
		totalCmd = pipe.HIncrBy(ctx, key, "total", 1)
		return nil
	})
	if err != nil {
		return service.ScoreRecord{}, errors.Wrapf(err, "record answer for user %d module %q", userID, module)
	}
	return service.ScoreRecord{
		UserID: userID,
		Module: module,
		Score:  int(scoreCmd.Val()),
		Total:  int(totalCmd.Val()),
	}, nil
}

func (s *RedisScoreStore) GetScore(ctx context.Context, userID int64, module string) (service.ScoreRecord, error) {
	vals, err := s.client.HMGet(ctx, s.key(userID, module), "score", "total").Result()
	if err != nil {
		return service.ScoreRecord{}, errors.Wrapf(err, "get score for user %d module %q", userID, module)
	}
	rec := service.ScoreRecord{UserID: userID, Module: module}
	if rec.Score, err = hashInt(vals[0]); err != nil {
		return service.ScoreRecord{}, err
	}
	if rec.Total, err = hashInt(vals[1]); err != nil {
		return service.ScoreRecord{}, err
	}
	return rec, nil
}

// hashInt converts an HMGET value; missing fields read as 0.
func hashInt(v interface{}) (int, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	return n, errors.Wrapf(err, "malformed score field %q", s)
}
