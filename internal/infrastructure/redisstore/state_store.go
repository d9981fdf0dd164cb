package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shopsight-backend/internal/ports"
)

// ErrStateNotFound is returned when a state nonce is unknown, expired,
// or already consumed.
var ErrStateNotFound = errors.New("oauth state not found")

const stateKeyPrefix = "oauth:state:"

// StateStore keeps OAuth state nonces in Redis so the install handshake
// survives across instances. Each nonce maps to the shop that initiated
// the flow and can be consumed exactly once.
type StateStore struct {
	client *redis.Client
}

func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

// NewClient opens a Redis connection and verifies it with a ping.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return client, nil
}

// Put stores state -> shop for ttl. Overwriting an existing nonce is
// rejected so a replayed install request cannot extend a stale nonce.
func (s *StateStore) Put(ctx context.Context, state, shop string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, stateKeyPrefix+state, shop, ttl).Result()
	if err != nil {
		return fmt.Errorf("store oauth state: %w", err)
	}
	if !ok {
		return fmt.Errorf("oauth state %q already exists", state)
	}
	return nil
}

// Consume atomically fetches and deletes the nonce, returning the shop
// it was issued for.
func (s *StateStore) Consume(ctx context.Context, state string) (string, error) {
	shop, err := s.client.GetDel(ctx, stateKeyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrStateNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume oauth state: %w", err)
	}
	return shop, nil
}

var _ ports.StateStore = (*StateStore)(nil)
