package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/pkg/database"
	"memberflow/internal/service/membership/domain"
)

// GormCardRepository 是 CardRepository 的 GORM 实现
type GormCardRepository struct {
	db *gorm.DB
}

// NewGormCardRepository 创建一个新的 GORM 仓储实例
func NewGormCardRepository(db *gorm.DB) *GormCardRepository {
	return &GormCardRepository{db: db}
}

// Insert 依赖 uk_card_user_merchant 唯一索引实现条件插入，重复时返回 ErrConflict
func (r *GormCardRepository) Insert(ctx context.Context, card *domain.Card) error {
	err := r.db.WithContext(ctx).Create(FromDomainCard(card)).Error
	return database.Translate(err, domain.ErrCardNotFound)
}

func (r *GormCardRepository) Get(ctx context.Context, id string) (*domain.Card, error) {
	var model MembershipCardModel
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error
	if err != nil {
		return nil, database.Translate(err, domain.ErrCardNotFound)
	}
	return ToDomainCard(&model), nil
}

// Update 只更新可变字段，并以 version 作为前置条件：
// UPDATE membership_card SET ... WHERE id = ? AND version = ?
func (r *GormCardRepository) Update(ctx context.Context, card *domain.Card, expectedVersion int64) error {
	updateData := map[string]interface{}{
		"points":     card.Points,
		"tier":       string(card.Tier),
		"version":    expectedVersion + 1,
		"updated_at": card.UpdatedAt,
	}
	res := r.db.WithContext(ctx).
		Model(&MembershipCardModel{}).
		Where("id = ? AND version = ?", card.ID, expectedVersion).
		Updates(updateData)
	if res.Error != nil {
		return database.Translate(res.Error, domain.ErrCardNotFound)
	}
	if res.RowsAffected == 0 {
		return r.missOrConflict(ctx, card.ID, expectedVersion)
	}
	card.Version = expectedVersion + 1
	return nil
}

func (r *GormCardRepository) ListByOwner(ctx context.Context, userID string) ([]*domain.Card, error) {
	var models []*MembershipCardModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, database.Translate(err, domain.ErrCardNotFound)
	}

	cards := make([]*domain.Card, len(models))
	for i, m := range models {
		cards[i] = ToDomainCard(m)
	}
	return cards, nil
}

// missOrConflict 区分"卡不存在"与"版本已被他人推进"
func (r *GormCardRepository) missOrConflict(ctx context.Context, id string, expectedVersion int64) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&MembershipCardModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return database.Translate(err, domain.ErrCardNotFound)
	}
	if n == 0 {
		return domain.ErrCardNotFound
	}
	return errors.Wrapf(apperr.ErrConflict, "card %s is no longer at version %d", id, expectedVersion)
}

// GormMerchantRepository 商户只读查询
type GormMerchantRepository struct {
	db *gorm.DB
}

func NewGormMerchantRepository(db *gorm.DB) *GormMerchantRepository {
	return &GormMerchantRepository{db: db}
}

func (r *GormMerchantRepository) Get(ctx context.Context, id string) (*domain.Merchant, error) {
	var model MerchantModel
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error
	if err != nil {
		return nil, database.Translate(err, domain.ErrMerchantNotFound)
	}
	return ToDomainMerchant(&model), nil
}

// AutoMigrate 建表与索引，仅用于开发环境
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&MembershipCardModel{}, &MerchantModel{})
}
