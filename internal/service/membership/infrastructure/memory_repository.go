package infrastructure

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/service/membership/domain"
)

// MemoryCardRepository 是单进程内的实现，用于本地运行和测试。
// 互斥锁保证了条件插入和版本比较在存储内部是原子的。
type MemoryCardRepository struct {
	mu      sync.RWMutex
	cards   map[string]domain.Card
	byOwner map[ownerKey]string
}

type ownerKey struct {
	userID     string
	merchantID string
}

func NewMemoryCardRepository() *MemoryCardRepository {
	return &MemoryCardRepository{
		cards:   make(map[string]domain.Card),
		byOwner: make(map[ownerKey]string),
	}
}

func (r *MemoryCardRepository) Insert(ctx context.Context, card *domain.Card) error {
	if err := ctx.Err(); err != nil {
		return apperr.FromStore(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ownerKey{userID: card.UserID, merchantID: card.MerchantID}
	if _, exists := r.byOwner[key]; exists {
		return errors.Wrapf(apperr.ErrConflict, "card for user %s at merchant %s", card.UserID, card.MerchantID)
	}
	if _, exists := r.cards[card.ID]; exists {
		return errors.Wrapf(apperr.ErrConflict, "card id %s", card.ID)
	}
	r.cards[card.ID] = *card
	r.byOwner[key] = card.ID
	return nil
}

func (r *MemoryCardRepository) Get(ctx context.Context, id string) (*domain.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.FromStore(err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cards[id]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	return &c, nil
}

func (r *MemoryCardRepository) Update(ctx context.Context, card *domain.Card, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return apperr.FromStore(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.cards[card.ID]
	if !ok {
		return domain.ErrCardNotFound
	}
	if stored.Version != expectedVersion {
		return errors.Wrapf(apperr.ErrConflict, "card %s is at version %d, expected %d", card.ID, stored.Version, expectedVersion)
	}
	card.Version = expectedVersion + 1
	r.cards[card.ID] = *card
	return nil
}

func (r *MemoryCardRepository) ListByOwner(ctx context.Context, userID string) ([]*domain.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.FromStore(err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Card
	for _, c := range r.cards {
		if c.UserID == userID {
			c := c
			out = append(out, &c)
		}
	}
	domain.SortCards(out)
	return out, nil
}

// MemoryMerchantRepository 商户只读存储，数据通过 Put 预置
type MemoryMerchantRepository struct {
	mu        sync.RWMutex
	merchants map[string]domain.Merchant
}

func NewMemoryMerchantRepository(merchants ...domain.Merchant) *MemoryMerchantRepository {
	r := &MemoryMerchantRepository{merchants: make(map[string]domain.Merchant)}
	for _, m := range merchants {
		r.merchants[m.ID] = m
	}
	return r
}

// Put 预置或覆盖一个商户
func (r *MemoryMerchantRepository) Put(m domain.Merchant) error {
	if err := m.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.merchants[m.ID] = m
	return nil
}

func (r *MemoryMerchantRepository) Get(ctx context.Context, id string) (*domain.Merchant, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.FromStore(err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.merchants[id]
	if !ok {
		return nil, domain.ErrMerchantNotFound
	}
	return &m, nil
}
