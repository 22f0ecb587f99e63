// internal/service/workflow/domain/status.go
package domain

import (
	"strings"

	"github.com/pkg/errors"

	"memberflow/internal/pkg/apperr"
)

// Kind 工作流实体的种类，三者共用同一种状态形态
type Kind string

const (
	KindTicket   Kind = "TICKET"   // 客服工单（联系表单）
	KindOrder    Kind = "ORDER"    // 顾客订单
	KindDocument Kind = "DOCUMENT" // 待审批文档
)

var kinds = []Kind{KindTicket, KindOrder, KindDocument}

// Kinds 返回全部种类
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

func (k Kind) Valid() bool {
	switch k {
	case KindTicket, KindOrder, KindDocument:
		return true
	}
	return false
}

// ParseKind 不区分大小写
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", errors.Wrapf(apperr.ErrInvalidInput, "unknown item kind %q", s)
	}
	return k, nil
}

// Status 是唯一的状态枚举。订单使用其中的别名展示（Pending/Accepted/Ready）。
type Status string

const (
	StatusNew        Status = "NEW"         // 订单：Pending
	StatusInProgress Status = "IN_PROGRESS" // 订单：Accepted
	StatusDone       Status = "DONE"        // 订单：Ready
	StatusArchived   Status = "ARCHIVED"    // 仅工单与文档
	StatusCompleted  Status = "COMPLETED"   // 仅订单，只能从 Ready 到达
	StatusCancelled  Status = "CANCELLED"   // 仅订单
)

var statuses = []Status{StatusNew, StatusInProgress, StatusDone, StatusArchived, StatusCompleted, StatusCancelled}

// aliases 订单状态别名，以及历史上出现过的叫法
var aliases = map[string]Status{
	"PENDING":  StatusNew,
	"ACCEPTED": StatusInProgress,
	"READY":    StatusDone,
	"RESOLVED": StatusDone,
	"CANCELED": StatusCancelled,
}

func (s Status) Valid() bool {
	for _, v := range statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus 接受规范名与别名，不区分大小写，"-" 与空格等同于 "_"
func ParseStatus(s string) (Status, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	if alias, ok := aliases[norm]; ok {
		return alias, nil
	}
	st := Status(norm)
	if !st.Valid() {
		return "", errors.Wrapf(apperr.ErrInvalidInput, "unknown status %q", s)
	}
	return st, nil
}

// InitialStatus 所有种类的初始状态都是 New（订单展示为 Pending）
func InitialStatus(Kind) Status {
	return StatusNew
}
