package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/pkg/database"
	"memberflow/internal/service/workflow/domain"
)

// GormItemRepository 是 ItemRepository 的 GORM 实现
type GormItemRepository struct {
	db *gorm.DB
}

func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

func (r *GormItemRepository) Insert(ctx context.Context, item *domain.Item) error {
	err := r.db.WithContext(ctx).Create(FromDomainItem(item)).Error
	return database.Translate(err, domain.ErrItemNotFound)
}

func (r *GormItemRepository) Get(ctx context.Context, id string) (*domain.Item, error) {
	var model WorkflowItemModel
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error
	if err != nil {
		return nil, database.Translate(err, domain.ErrItemNotFound)
	}
	return ToDomainItem(&model), nil
}

// Update 单条语句写入 status 与 version：
// UPDATE workflow_item SET ... WHERE id = ? AND version = ?
func (r *GormItemRepository) Update(ctx context.Context, item *domain.Item, expectedVersion int64) error {
	res := r.db.WithContext(ctx).
		Model(&WorkflowItemModel{}).
		Where("id = ? AND version = ?", item.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":     string(item.Status),
			"version":    expectedVersion + 1,
			"updated_at": item.UpdatedAt,
		})
	if res.Error != nil {
		return database.Translate(res.Error, domain.ErrItemNotFound)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&WorkflowItemModel{}).Where("id = ?", item.ID).Count(&n).Error; err != nil {
			return database.Translate(err, domain.ErrItemNotFound)
		}
		if n == 0 {
			return domain.ErrItemNotFound
		}
		return errors.Wrapf(apperr.ErrConflict, "item %s is no longer at version %d", item.ID, expectedVersion)
	}
	item.Version = expectedVersion + 1
	return nil
}

func (r *GormItemRepository) ListByOwner(ctx context.Context, ownerID string, filter domain.ListFilter) ([]*domain.Item, error) {
	return r.list(r.db.WithContext(ctx).Where("owner_id = ?", ownerID), filter)
}

func (r *GormItemRepository) ListRecent(ctx context.Context, filter domain.ListFilter) ([]*domain.Item, error) {
	return r.list(r.db.WithContext(ctx), filter)
}

func (r *GormItemRepository) list(q *gorm.DB, filter domain.ListFilter) ([]*domain.Item, error) {
	filter = filter.Normalize()
	if filter.Kind != "" {
		q = q.Where("kind = ?", string(filter.Kind))
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}

	var models []*WorkflowItemModel
	err := q.Order("created_at DESC").Order("id ASC").Limit(filter.Limit).Find(&models).Error
	if err != nil {
		return nil, database.Translate(err, domain.ErrItemNotFound)
	}

	items := make([]*domain.Item, len(models))
	for i, m := range models {
		items[i] = ToDomainItem(m)
	}
	return items, nil
}

// AutoMigrate 建表与索引，仅用于开发环境
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&WorkflowItemModel{})
}
