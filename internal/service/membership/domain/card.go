// internal/service/membership/domain/card.go
package domain

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"memberflow/internal/pkg/apperr"
)

// Card 是会员卡聚合根，代表一个用户在一个商户下的会员关系
type Card struct {
	ID         string
	UserID     string
	MerchantID string
	Points     int64 // 累计积分，只增不减，不会被截断到等级上限
	Tier       Tier
	Version    int64 // 乐观锁版本号，每次写入 +1
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewCard 创建一张新卡：0 积分，Bronze 等级
func NewCard(id, userID, merchantID string, now time.Time) (*Card, error) {
	if id == "" || userID == "" || merchantID == "" {
		return nil, errors.Wrap(apperr.ErrInvalidInput, "card id, user id and merchant id are required")
	}
	return &Card{
		ID:         id,
		UserID:     userID,
		MerchantID: merchantID,
		Points:     0,
		Tier:       TierBronze,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Accrue 累加积分。积分超过当前等级上限时晋升，直到不再超过或已是最高等级。
// 晋升只会向上，积分保留超出部分。返回本次是否发生了晋升。
func (c *Card) Accrue(points int64, now time.Time) (bool, error) {
	if points <= 0 {
		return false, ErrInvalidPoints
	}
	if c.Points > math.MaxInt64-points {
		return false, errors.Wrap(apperr.ErrInvalidAmount, "point balance would overflow")
	}

	c.Points += points
	promoted := false
	for c.Points > c.Tier.Ceiling() {
		next, ok := c.Tier.Next()
		if !ok {
			break
		}
		c.Tier = next
		promoted = true
	}
	c.UpdatedAt = now
	return promoted, nil
}

// PointsToNextTier 距离下一次晋升还差的积分；最高等级返回 0
func (c *Card) PointsToNextTier() int64 {
	if _, ok := c.Tier.Next(); !ok {
		return 0
	}
	return c.Tier.Ceiling() - c.Points + 1
}
