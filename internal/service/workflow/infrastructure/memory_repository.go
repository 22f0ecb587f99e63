package infrastructure

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/service/workflow/domain"
)

// MemoryItemRepository 是单进程内的实现，用于本地运行和测试
type MemoryItemRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Item
}

func NewMemoryItemRepository() *MemoryItemRepository {
	return &MemoryItemRepository{items: make(map[string]domain.Item)}
}

func (r *MemoryItemRepository) Insert(ctx context.Context, item *domain.Item) error {
	if err := ctx.Err(); err != nil {
		return apperr.FromStore(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; exists {
		return errors.Wrapf(apperr.ErrConflict, "item id %s", item.ID)
	}
	r.items[item.ID] = *item
	return nil
}

func (r *MemoryItemRepository) Get(ctx context.Context, id string) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.FromStore(err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return &it, nil
}

func (r *MemoryItemRepository) Update(ctx context.Context, item *domain.Item, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return apperr.FromStore(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[item.ID]
	if !ok {
		return domain.ErrItemNotFound
	}
	if stored.Version != expectedVersion {
		return errors.Wrapf(apperr.ErrConflict, "item %s is at version %d, expected %d", item.ID, stored.Version, expectedVersion)
	}
	stored.Status = item.Status
	stored.UpdatedAt = item.UpdatedAt
	stored.Version = expectedVersion + 1
	r.items[item.ID] = stored
	item.Version = stored.Version
	return nil
}

func (r *MemoryItemRepository) ListByOwner(ctx context.Context, ownerID string, filter domain.ListFilter) ([]*domain.Item, error) {
	return r.list(ctx, filter, func(it *domain.Item) bool { return it.OwnerID == ownerID })
}

func (r *MemoryItemRepository) ListRecent(ctx context.Context, filter domain.ListFilter) ([]*domain.Item, error) {
	return r.list(ctx, filter, func(*domain.Item) bool { return true })
}

func (r *MemoryItemRepository) list(ctx context.Context, filter domain.ListFilter, keep func(*domain.Item) bool) ([]*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.FromStore(err)
	}
	filter = filter.Normalize()
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Item
	for _, it := range r.items {
		it := it
		if keep(&it) && filter.Matches(&it) {
			out = append(out, &it)
		}
	}
	domain.SortItems(out)
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
