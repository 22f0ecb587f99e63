// internal/pkg/notify/dispatcher.go
package notify

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"memberflow/internal/pkg/logger"
	"memberflow/internal/pkg/metrics"
)

// Event 描述一次状态变更：工单/订单/文档的状态流转，或会员卡的等级晋升
type Event struct {
	ID             string    `json:"id"`
	ItemID         string    `json:"itemId"`
	ItemKind       string    `json:"itemKind"`
	OwnerID        string    `json:"ownerId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Summary        string    `json:"summary"`
	ActorID        string    `json:"actorId,omitempty"`
	ActorRole      string    `json:"actorRole,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Dispatcher 是通知的出站端口，具体实现（Kafka、Webhook、邮件）在引擎之外
type Dispatcher interface {
	Notify(ctx context.Context, event Event) error
}

// DispatcherFunc 让普通函数满足 Dispatcher
type DispatcherFunc func(ctx context.Context, event Event) error

func (f DispatcherFunc) Notify(ctx context.Context, event Event) error { return f(ctx, event) }

// DefaultTimeout 单次通知的最长等待时间
const DefaultTimeout = 2 * time.Second

// Fire 同步调用一次 dispatcher，但失败不会传播给调用方：
// 状态变更已经落库，通知失败只记录日志、指标和 span。
// 请求被取消时通知仍会发出，因此这里使用脱离取消的 context。
func Fire(ctx context.Context, d Dispatcher, event Event, source string) {
	if d == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultTimeout)
	defer cancel()

	if err := d.Notify(notifyCtx, event); err != nil {
		metrics.NotificationFailures.WithLabelValues(source).Inc()
		trace.SpanFromContext(ctx).RecordError(err)
		logger.Ctx(ctx).Error().Err(err).
			Str("source", source).
			Str("item_id", event.ItemID).
			Str("previous_status", event.PreviousStatus).
			Str("new_status", event.NewStatus).
			Msg("Failed to dispatch notification")
	}
}
