// internal/service/workflow/domain/item.go
package domain

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/pkg/authctx"
)

const maxLabelLength = 200

// Item 是工单、订单、文档共用的工作流聚合根。实体从不物理删除，终态保留用于审计。
type Item struct {
	ID        string
	Kind      Kind
	OwnerID   string
	Label     string
	Summary   string // 可选的自由文本
	Status    Status
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewItem 以初始状态创建实体
func NewItem(id string, kind Kind, ownerID, label, summary string, now time.Time) (*Item, error) {
	if !kind.Valid() {
		return nil, errors.Wrapf(apperr.ErrInvalidInput, "unknown item kind %q", kind)
	}
	if id == "" || ownerID == "" {
		return nil, errors.Wrap(apperr.ErrInvalidInput, "item id and owner id are required")
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrEmptyLabel
	}
	if len(label) > maxLabelLength {
		return nil, errors.Wrapf(apperr.ErrInvalidInput, "item label exceeds %d bytes", maxLabelLength)
	}
	return &Item{
		ID:        id,
		Kind:      kind,
		OwnerID:   ownerID,
		Label:     label,
		Summary:   summary,
		Status:    InitialStatus(kind),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TransitionTo 把实体推进到 target。
// 同状态调用是无操作，返回 changed=false 且不报错，但调用方必须能看到该实体；
// 非直接后继返回 ErrInvalidTransition；角色无权走这条边返回 ErrForbidden。
func (it *Item) TransitionTo(target Status, actor authctx.Actor, now time.Time) (bool, error) {
	if target == it.Status {
		if !it.VisibleTo(actor) {
			return false, errors.Wrapf(apperr.ErrForbidden, "role %s may not act on %s", actor.Role, it.ID)
		}
		return false, nil
	}
	if !CanTransition(it.Kind, it.Status, target) {
		if IsTerminal(it.Kind, it.Status) {
			return false, errors.Wrapf(apperr.ErrInvalidTransition, "%s %s is %s, which is terminal", strings.ToLower(string(it.Kind)), it.ID, it.Status.Label(it.Kind))
		}
		return false, errors.Wrapf(apperr.ErrInvalidTransition, "%s cannot move from %s to %s", strings.ToLower(string(it.Kind)), it.Status.Label(it.Kind), target.Label(it.Kind))
	}
	if !Permits(actor, it.Kind, it.OwnerID, it.Status, target) {
		return false, errors.Wrapf(apperr.ErrForbidden, "role %s may not move %s from %s to %s", actor.Role, it.ID, it.Status.Label(it.Kind), target.Label(it.Kind))
	}
	it.Status = target
	it.UpdatedAt = now
	return true, nil
}

// VisibleTo 员工可见全部实体，其他人只能看到自己的
func (it *Item) VisibleTo(actor authctx.Actor) bool {
	return actor.IsStaff() || actor.Owns(it.OwnerID)
}
