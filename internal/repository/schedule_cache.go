package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"

	"github.com/redis/go-redis/v9"
)

const scheduleKeyPrefix = "loan:schedule:"

type RedisScheduleCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisScheduleCache(client *redis.Client, ttl time.Duration) *RedisScheduleCache {
	return &RedisScheduleCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *RedisScheduleCache) Get(ctx context.Context, loanID string) ([]*domain.Installment, bool) {
	val, err := c.client.Get(ctx, scheduleKeyPrefix+loanID).Bytes()
	if err != nil {
		return nil, false
	}

	var schedule []*domain.Installment
	if err := json.Unmarshal(val, &schedule); err != nil {
		return nil, false
	}
	return schedule, true
}

func (c *RedisScheduleCache) Set(ctx context.Context, loanID string, schedule []*domain.Installment) error {
	payload, err := json.Marshal(schedule)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, scheduleKeyPrefix+loanID, payload, c.ttl).Err()
}

func (c *RedisScheduleCache) Invalidate(ctx context.Context, loanID string) error {
	return c.client.Del(ctx, scheduleKeyPrefix+loanID).Err()
}

// MemoryScheduleCache is used when Redis is disabled and in tests.
type MemoryScheduleCache struct {
	mu   sync.RWMutex
	Data map[string][]byte
}

func NewMemoryScheduleCache() *MemoryScheduleCache {
	return &MemoryScheduleCache{
		Data: make(map[string][]byte),
	}
}

func (m *MemoryScheduleCache) Get(ctx context.Context, loanID string) ([]*domain.Installment, bool) {
	m.mu.RLock()
	val, ok := m.Data[loanID]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	var schedule []*domain.Installment
	if err := json.Unmarshal(val, &schedule); err != nil {
		return nil, false
	}
	return schedule, true
}

func (m *MemoryScheduleCache) Set(ctx context.Context, loanID string, schedule []*domain.Installment) error {
	payload, err := json.Marshal(schedule)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[loanID] = payload
	return nil
}

func (m *MemoryScheduleCache) Invalidate(ctx context.Context, loanID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, loanID)
	return nil
}
