package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

const (
	defaultKeyPrefix = "paystub:analysis:"
	defaultStateTTL  = time.Hour
	watchAttempts    = 5
)

// OpenRedis parses url and pings the server.
func OpenRedis(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "invalid redis url", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logger.Error("failed to connect to redis", "addr", opt.Addr, "error", err)
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("connected to redis", "addr", opt.Addr, "db", opt.DB)
	return client, nil
}

// RedisStore keeps analysis state as JSON under prefix+id with a TTL that
// is refreshed on every transition. Transitions use WATCH so concurrent
// writers (a worker and a cancel request) cannot both win.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisStore(client redis.UniversalClient, cfg common.RedisConfig, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &RedisStore{client: client, prefix: cfg.KeyPrefix, ttl: cfg.TTL, logger: logger}
	if s.prefix == "" {
		s.prefix = defaultKeyPrefix
	}
	if s.ttl <= 0 {
		s.ttl = defaultStateTTL
	}
	return s
}

func (r *RedisStore) key(id string) string { return r.prefix + id }

func (r *RedisStore) Create(ctx context.Context, id string) (entity.AnalysisState, error) {
	s := newState(id, time.Now().UTC())
	b, err := json.Marshal(s)
	if err != nil {
		return entity.AnalysisState{}, err
	}
	ok, err := r.client.SetNX(ctx, r.key(id), b, r.ttl).Result()
	if err != nil {
		return entity.AnalysisState{}, fmt.Errorf("redis create %s: %w", id, err)
	}
	if !ok {
		return entity.AnalysisState{}, alreadyExists(id)
	}
	return s, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (entity.AnalysisState, error) {
	b, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.AnalysisState{}, notFound(id)
	}
	if err != nil {
		return entity.AnalysisState{}, fmt.Errorf("redis get %s: %w", id, err)
	}
	var s entity.AnalysisState
	if err := json.Unmarshal(b, &s); err != nil {
		return entity.AnalysisState{}, fmt.Errorf("decode analysis %s: %w", id, err)
	}
	return s, nil
}

func (r *RedisStore) Advance(ctx context.Context, id string, u Update) (entity.AnalysisState, error) {
	key := r.key(id)
	var out entity.AnalysisState
	err := retry.Do(
		func() error {
			return r.client.Watch(ctx, func(tx *redis.Tx) error {
				b, err := tx.Get(ctx, key).Bytes()
				if errors.Is(err, redis.Nil) {
					return retry.Unrecoverable(notFound(id))
				}
				if err != nil {
					return err
				}
				var cur entity.AnalysisState
				if err := json.Unmarshal(b, &cur); err != nil {
					return retry.Unrecoverable(fmt.Errorf("decode analysis %s: %w", id, err))
				}
				next, err := apply(cur, u, time.Now().UTC())
				if err != nil {
					out = cur
					return retry.Unrecoverable(err)
				}
				nb, err := json.Marshal(next)
				if err != nil {
					return retry.Unrecoverable(err)
				}
				_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
					p.Set(ctx, key, nb, r.ttl)
					return nil
				})
				if err == nil {
					out = next
				}
				return err
			}, key)
		},
		retry.Context(ctx),
		retry.Attempts(watchAttempts),
		retry.Delay(5*time.Millisecond),
		retry.RetryIf(func(err error) bool { return errors.Is(err, redis.TxFailedErr) }),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		r.logger.Debug("analysis.transition.rejected", "analysis_id", id, "to", u.Status, "error", err)
		return out, err
	}
	return out, nil
}
