package infrastructure

import (
	"memberflow/internal/service/workflow/domain"
)

// ToDomainItem 将数据库模型转换为领域模型
func ToDomainItem(model *WorkflowItemModel) *domain.Item {
	if model == nil {
		return nil
	}
	return &domain.Item{
		ID:        model.ID,
		Kind:      domain.Kind(model.Kind),
		OwnerID:   model.OwnerID,
		Label:     model.Label,
		Summary:   model.Summary,
		Status:    domain.Status(model.Status),
		Version:   model.Version,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// FromDomainItem 将领域模型转换为数据库模型（用于插入）
func FromDomainItem(item *domain.Item) *WorkflowItemModel {
	if item == nil {
		return nil
	}
	return &WorkflowItemModel{
		ID:        item.ID,
		Kind:      string(item.Kind),
		OwnerID:   item.OwnerID,
		Label:     item.Label,
		Summary:   item.Summary,
		Status:    string(item.Status),
		Version:   item.Version,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}
