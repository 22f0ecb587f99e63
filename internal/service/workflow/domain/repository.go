// internal/service/workflow/domain/repository.go
package domain

import (
	"context"
	"sort"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ListFilter 列表查询条件，零值表示不过滤
type ListFilter struct {
	Kind   Kind
	Status Status
	Limit  int
}

// Normalize 把 Limit 限制在 (0, MaxListLimit] 内
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return f
}

// Matches 判断实体是否满足过滤条件
func (f ListFilter) Matches(it *Item) bool {
	if f.Kind != "" && it.Kind != f.Kind {
		return false
	}
	if f.Status != "" && it.Status != f.Status {
		return false
	}
	return true
}

// ItemRepository 定义了工作流实体的持久化接口
type ItemRepository interface {
	// Insert ID 已存在时返回 apperr.ErrConflict
	Insert(ctx context.Context, item *Item) error

	// Get 不存在时返回 ErrItemNotFound
	Get(ctx context.Context, id string) (*Item, error)

	// Update 仅当存储中的版本等于 expectedVersion 时写入 status/updated_at
	Update(ctx context.Context, item *Item, expectedVersion int64) error

	// ListByOwner 与 ListRecent 均按 SortItems 的顺序返回，最多 filter.Limit 条
	ListByOwner(ctx context.Context, ownerID string, filter ListFilter) ([]*Item, error)
	ListRecent(ctx context.Context, filter ListFilter) ([]*Item, error)
}

// SortItems 创建时间倒序，时间相同按 ID 升序
func SortItems(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}
