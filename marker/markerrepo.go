// Package marker implements the processed file marker store. One key per
// log object doubles as the claim lock and the long-lived completion
// record; its mere presence, regardless of value, blocks re-claiming.
package marker

import (
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/google/wire"

	"github.com/gemstats/download-counter/config"
)

const (
	markerKeyFormat = "fastly-log:%s:%s"
	processingState = "processing"
	processedState  = "processed"
)

var (
	// ErrAlreadyProcessed is returned by TryClaim when the log object is
	// already processed or currently in flight; callers must treat it as a
	// benign terminal condition, not a hard failure
	ErrAlreadyProcessed = errors.New("log object already processed or in flight")
	// ErrMarkerStoreUnavailable is returned when the marker store could not
	// answer at all; distinct from ErrAlreadyProcessed so an outage is not
	// mistaken for completed work
	ErrMarkerStoreUnavailable = errors.New("marker store unavailable")

	// MarkerInjector is the injector for the marker store module
	MarkerInjector = wire.NewSet(NewRedisPool, NewRepository, wire.Bind(new(Repository), new(*RedisMarkerRepository)))
)

// Repository is the idempotency guard for log object processing
type Repository interface {
	// TryClaim atomically claims (bucket, objectKey) for processing; nil on
	// success, ErrAlreadyProcessed when a marker already exists
	TryClaim(bucket, objectKey string) error
	// MarkDone records completed processing of (bucket, objectKey) and
	// extends the marker into the long-lived completion record
	MarkDone(bucket, objectKey string) error
}

// RedisMarkerRepository is the Redis implementation of the marker Repository
type RedisMarkerRepository struct {
	pool          *redis.Pool
	processingTTL time.Duration
	processedTTL  time.Duration
}

func markerKey(bucket, objectKey string) string {
	return fmt.Sprintf(markerKeyFormat, bucket, objectKey)
}

// TryClaim performs a single atomic SET..NX with the short processing TTL;
// there is deliberately no exists-check-then-set so two concurrent
// executions can never both win the claim
func (repo *RedisMarkerRepository) TryClaim(bucket, objectKey string) error {
	conn := repo.pool.Get()
	defer conn.Close()
	_, err := redis.String(conn.Do("SET", markerKey(bucket, objectKey), processingState, "EX", int64(repo.processingTTL.Seconds()), "NX"))
	if err == redis.ErrNil {
		return ErrAlreadyProcessed
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMarkerStoreUnavailable, err)
	}
	return nil
}

// MarkDone flips the marker to processed and resets its expiry to the long
// retention TTL; after that TTL lapses the object may be reprocessed, which
// is the accepted trade-off for never locking out crashed claims forever
func (repo *RedisMarkerRepository) MarkDone(bucket, objectKey string) error {
	conn := repo.pool.Get()
	defer conn.Close()
	_, err := conn.Do("SET", markerKey(bucket, objectKey), processedState, "EX", int64(repo.processedTTL.Seconds()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMarkerStoreUnavailable, err)
	}
	return nil
}

// NewRepository creates the marker repository from the shared connection pool
func NewRepository(pool *redis.Pool, markerConfig config.MarkerStoreConfig) *RedisMarkerRepository {
	return &RedisMarkerRepository{
		pool:          pool,
		processingTTL: markerConfig.GetProcessingTTL(),
		processedTTL:  markerConfig.GetProcessedTTL(),
	}
}

// NewRedisPool creates the connection pool for the marker store
func NewRedisPool(markerConfig config.MarkerStoreConfig) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     int(markerConfig.GetMarkerStoreMaxIdleConnections()),
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", markerConfig.GetMarkerStoreAddress())
		},
		TestOnBorrow: func(conn redis.Conn, lastUsed time.Time) error {
			if time.Since(lastUsed) < time.Minute {
				return nil
			}
			_, err := conn.Do("PING")
			return err
		},
	}
}
