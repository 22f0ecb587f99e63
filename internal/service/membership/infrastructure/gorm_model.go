package infrastructure

import (
	"time"
)

// MembershipCardModel 对应数据库中的 membership_card 表。
// uk_card_user_merchant 是"每个用户在每个商户最多一张卡"的最终保证。
type MembershipCardModel struct {
	ID         string    `gorm:"primaryKey;size:36"`
	UserID     string    `gorm:"size:64;not null;uniqueIndex:uk_card_user_merchant,priority:1"`
	MerchantID string    `gorm:"size:64;not null;uniqueIndex:uk_card_user_merchant,priority:2"`
	Points     int64     `gorm:"not null"`
	Tier       string    `gorm:"size:16;not null"`
	Version    int64     `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null;index:idx_card_created"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName 指定 GORM 应该使用的表名
func (MembershipCardModel) TableName() string {
	return "membership_card"
}

// MerchantModel 对应数据库中的 merchant 表，由入驻流程写入
type MerchantModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:128;not null"`
	Slug        string `gorm:"size:128;not null;uniqueIndex"`
	AccentColor string `gorm:"size:7"`
	Active      bool   `gorm:"not null"`
	CreatedAt   time.Time
}

// TableName 指定 GORM 应该使用的表名
func (MerchantModel) TableName() string {
	return "merchant"
}
