package application

import (
	"time"

	"memberflow/internal/service/membership/domain"
)

// JoinRequest 入会请求
type JoinRequest struct {
	MerchantID string `json:"merchant_id"`
}

// AccrueRequest 积分累加请求
type AccrueRequest struct {
	Points int64 `json:"points"`
}

// CardResponse 是会员卡对外的展示结构
type CardResponse struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	MerchantID       string    `json:"merchant_id"`
	Points           int64     `json:"points"`
	Tier             string    `json:"tier"`
	TierName         string    `json:"tier_name"`
	TierCeiling      int64     `json:"tier_ceiling"`
	PointsToNextTier int64     `json:"points_to_next_tier"`
	Perks            string    `json:"perks"`
	CreatedAt        time.Time `json:"created_at"`
}

// TierResponse 等级表中的一行
type TierResponse struct {
	Tier    string `json:"tier"`
	Name    string `json:"name"`
	Ceiling int64  `json:"ceiling"`
	Perks   string `json:"perks"`
}

func ToCardResponse(c *domain.Card) *CardResponse {
	return &CardResponse{
		ID:               c.ID,
		UserID:           c.UserID,
		MerchantID:       c.MerchantID,
		Points:           c.Points,
		Tier:             string(c.Tier),
		TierName:         c.Tier.Name(),
		TierCeiling:      c.Tier.Ceiling(),
		PointsToNextTier: c.PointsToNextTier(),
		Perks:            c.Tier.Perks(),
		CreatedAt:        c.CreatedAt,
	}
}

func TierTable() []TierResponse {
	out := make([]TierResponse, 0, len(domain.Tiers()))
	for _, t := range domain.Tiers() {
		out = append(out, TierResponse{Tier: string(t), Name: t.Name(), Ceiling: t.Ceiling(), Perks: t.Perks()})
	}
	return out
}
