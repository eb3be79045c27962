package hades

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tartarus-sandbox/coldstart/pkg/domain"
)

const (
	runKeyPrefix   = "coldstart:run:"
	runIndexPrefix = "coldstart:runs:"
	allRunsIndex   = "coldstart:runs"
)

type RedisRegistry struct {
	client *redis.Client
	// TTL expires stored runs. Zero keeps them forever.
	TTL time.Duration
}

func NewRedisRegistry(addr string, db int, password string) (*RedisRegistry, error) {
	return newRedisRegistry(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisRegistryFromURL accepts redis:// and rediss:// URLs, including
// ACL usernames. rediss:// connects over TLS.
func NewRedisRegistryFromURL(url string) (*RedisRegistry, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return newRedisRegistry(opts)
}

func newRedisRegistry(opts *redis.Options) (*RedisRegistry, error) {
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisRegistry{client: client}, nil
}

func (r *RedisRegistry) Close() error {
	return r.client.Close()
}

func (r *RedisRegistry) Save(ctx context.Context, run *domain.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	score := float64(run.StartedAt.UnixNano())
	member := string(run.ID)

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, runKeyPrefix+member, data, r.TTL)
		pipe.ZAdd(ctx, runIndexPrefix+run.Function.Name(), redis.Z{Score: score, Member: member})
		pipe.ZAdd(ctx, allRunsIndex, redis.Z{Score: score, Member: member})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

func (r *RedisRegistry) GetRun(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	val, err := r.client.Get(ctx, runKeyPrefix+string(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run domain.Run
	if err := json.Unmarshal([]byte(val), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

func (r *RedisRegistry) DeleteRun(ctx context.Context, id domain.RunID) error {
	member := string(id)

	// The per-function index needs the function name. An expired run only
	// leaves index members behind, which ListRuns already skips.
	run, err := r.GetRun(ctx, id)
	if err != nil && !errors.Is(err, ErrRunNotFound) {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, runKeyPrefix+member)
		pipe.ZRem(ctx, allRunsIndex, member)
		if run != nil {
			pipe.ZRem(ctx, runIndexPrefix+run.Function.Name(), member)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	return nil
}

func (r *RedisRegistry) ListRuns(ctx context.Context, function string, limit int) ([]domain.Run, error) {
	index := allRunsIndex
	if function != "" {
		index = runIndexPrefix + domain.FunctionRef(function).Name()
	}

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := r.client.ZRevRange(ctx, index, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]domain.Run, 0, len(ids))
	for _, id := range ids {
		run, err := r.GetRun(ctx, domain.RunID(id))
		if err != nil {
			if errors.Is(err, ErrRunNotFound) {
				continue // expired
			}
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}
