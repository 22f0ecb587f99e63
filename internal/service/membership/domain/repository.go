// internal/service/membership/domain/repository.go
package domain

import (
	"context"
	"sort"
)

// CardRepository 定义了会员卡的持久化接口。
// 它位于领域层，但由基础设施层实现。
type CardRepository interface {
	// Insert 条件插入：(UserID, MerchantID) 已存在时返回 apperr.ErrConflict，
	// 而不是先查后写
	Insert(ctx context.Context, card *Card) error

	// Get 不存在时返回 ErrCardNotFound
	Get(ctx context.Context, id string) (*Card, error)

	// Update 仅当存储中的版本等于 expectedVersion 时写入，成功后 card.Version 变为 expectedVersion+1。
	// 版本不符返回 apperr.ErrConflict，卡不存在返回 ErrCardNotFound。
	Update(ctx context.Context, card *Card, expectedVersion int64) error

	// ListByOwner 按 SortCards 的顺序返回用户的全部会员卡
	ListByOwner(ctx context.Context, userID string) ([]*Card, error)
}

// MerchantRepository 商户只读查询
type MerchantRepository interface {
	Get(ctx context.Context, id string) (*Merchant, error)
}

// SortCards 创建时间倒序，时间相同按 ID 升序
func SortCards(cards []*Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		if !cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].CreatedAt.After(cards[j].CreatedAt)
		}
		return cards[i].ID < cards[j].ID
	})
}
