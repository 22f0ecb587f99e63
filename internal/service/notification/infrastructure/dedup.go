package infrastructure

import (
	"context"
	"sync"
	"time"

	"memberflow/internal/pkg/logger"
	"memberflow/internal/pkg/redis"
	"memberflow/internal/service/notification/application"
)

// MemoryDedupStore 单实例消费者使用
type MemoryDedupStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{seen: make(map[string]struct{})}
}

func (s *MemoryDedupStore) MarkOnce(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return false, nil
	}
	s.seen[id] = struct{}{}
	return true, nil
}

func (s *MemoryDedupStore) Forget(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, id)
	return nil
}

// RedisDedupStore 在多个消费者实例之间共享已投递标记，标记在 ttl 后过期
type RedisDedupStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDedupStore(client *redis.Client, ttl time.Duration) *RedisDedupStore {
	return &RedisDedupStore{client: client, ttl: ttl}
}

func dedupKey(id string) string { return "mf:notified:" + id }

func (s *RedisDedupStore) MarkOnce(ctx context.Context, id string) (bool, error) {
	return s.client.GetClient().SetNX(ctx, dedupKey(id), 1, s.ttl).Result()
}

func (s *RedisDedupStore) Forget(ctx context.Context, id string) error {
	return s.client.GetClient().Del(ctx, dedupKey(id)).Err()
}

// LogDeliverer 把通知写进日志，没有接入邮件网关时使用
type LogDeliverer struct{}

func (LogDeliverer) Deliver(ctx context.Context, msg application.Message) error {
	logger.Ctx(ctx).Info().
		Str("event_id", msg.EventID).
		Str("recipient", msg.Recipient).
		Str("subject", msg.Subject).
		Msg(msg.Body)
	return nil
}
