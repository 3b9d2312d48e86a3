package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/notify"
)

// LifetimeStore keeps lifetime metrics in Redis so they survive host
// moves, not just restarts. One key per node role.
type LifetimeStore struct {
	client *Client
	key    string
}

// NewLifetimeStore creates a store keyed by node role.
func NewLifetimeStore(client *Client, role notify.Role) *LifetimeStore {
	return &LifetimeStore{
		client: client,
		key:    fmt.Sprintf("valiburn:lifetime:%s", role),
	}
}

// Load reads the persisted metrics. A missing key yields zero metrics.
func (s *LifetimeStore) Load() (notify.LifetimeMetrics, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var m notify.LifetimeMetrics
	data, err := s.client.rdb.Get(ctx, s.key).Bytes()
	if err == goredis.Nil {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("get lifetime metrics: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse lifetime metrics: %w", err)
	}
	return m, nil
}

// Save writes the metrics without expiry.
func (s *LifetimeStore) Save(m notify.LifetimeMetrics) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode lifetime metrics: %w", err)
	}
	if err := s.client.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set lifetime metrics: %w", err)
	}
	return nil
}
