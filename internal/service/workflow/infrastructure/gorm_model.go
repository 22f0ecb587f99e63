package infrastructure

import (
	"time"
)

// WorkflowItemModel 对应数据库中的 workflow_item 表，工单、订单、文档共用
type WorkflowItemModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Kind      string    `gorm:"size:16;not null;index:idx_item_kind_status,priority:1"`
	OwnerID   string    `gorm:"size:64;not null;index:idx_item_owner"`
	Label     string    `gorm:"size:200;not null"`
	Summary   string    `gorm:"type:text"`
	Status    string    `gorm:"size:16;not null;index:idx_item_kind_status,priority:2"`
	Version   int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_item_created"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName 指定 GORM 应该使用的表名
func (WorkflowItemModel) TableName() string {
	return "workflow_item"
}
