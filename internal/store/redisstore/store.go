package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	activeSessionKey = "bridge:active_session"
	deviceKeyPrefix  = "bridge:device:"
)

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *Store) Close() error { return s.rdb.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// SetActiveSession persists the session pointer so a bridge restart
// reconnects into the conversation the user was in.
func (s *Store) SetActiveSession(ctx context.Context, sessionID string) error {
	return s.rdb.Set(ctx, activeSessionKey, sessionID, 0).Err()
}

// ActiveSession returns the saved pointer, or "" when none is saved.
func (s *Store) ActiveSession(ctx context.Context) (string, error) {
	v, err := s.rdb.Get(ctx, activeSessionKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// SetDeviceState caches the latest telemetry frame for one device.
func (s *Store) SetDeviceState(ctx context.Context, deviceID string, frame []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, deviceKeyPrefix+deviceID, frame, ttl).Err()
}

// DeviceState returns the cached frame, or nil when absent or expired.
func (s *Store) DeviceState(ctx context.Context, deviceID string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, deviceKeyPrefix+deviceID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
