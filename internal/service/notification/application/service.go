// internal/service/notification/application/service.go
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/pkg/logger"
	"memberflow/internal/pkg/metrics"
	"memberflow/internal/pkg/notify"
)

const (
	maxDeliveryAttempts = 3
	retryBackoff        = 200 * time.Millisecond
)

// Message 投递给实体所有者的一条通知
type Message struct {
	EventID   string
	Recipient string
	Subject   string
	Body      string
}

// Deliverer 把通知送到用户手里（邮件、短信、站内信）
type Deliverer interface {
	Deliver(ctx context.Context, msg Message) error
}

// DelivererFunc 让普通函数满足 Deliverer
type DelivererFunc func(ctx context.Context, msg Message) error

func (f DelivererFunc) Deliver(ctx context.Context, msg Message) error { return f(ctx, msg) }

// DedupStore 记录已投递的事件 ID。同一事件可能因为重平衡被重复消费。
type DedupStore interface {
	// MarkOnce 首次见到 id 时返回 true
	MarkOnce(ctx context.Context, id string) (bool, error)
	// Forget 投递失败时撤销标记，使重放能再次投递
	Forget(ctx context.Context, id string) error
}

// DeliveryService 消费通知事件并投递
type DeliveryService struct {
	deliverer Deliverer
	dedup     DedupStore
	tracer    trace.Tracer
	backoff   time.Duration
}

func NewDeliveryService(deliverer Deliverer, dedup DedupStore, tracer trace.Tracer) *DeliveryService {
	return &DeliveryService{deliverer: deliverer, dedup: dedup, tracer: tracer, backoff: retryBackoff}
}

// Handle 投递一个事件。返回 ErrInvalidInput 表示事件本身有问题，重试无意义；
// 其余错误表示多次重试后仍然失败。
func (s *DeliveryService) Handle(ctx context.Context, event notify.Event) error {
	ctx, span := s.tracer.Start(ctx, "DeliveryService.Handle", trace.WithAttributes(
		attribute.String("event.id", event.ID),
		attribute.String("item.id", event.ItemID),
		attribute.String("item.kind", event.ItemKind),
	))
	defer span.End()

	if event.ID == "" || event.OwnerID == "" {
		err := errors.Wrap(apperr.ErrInvalidInput, "notification event requires id and owner")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	first, err := s.dedup.MarkOnce(ctx, event.ID)
	if err != nil {
		return s.fail(span, errors.Wrap(apperr.FromStore(err), "dedup check failed"))
	}
	if !first {
		metrics.NotificationDeliveries.WithLabelValues("duplicate").Inc()
		logger.Ctx(ctx).Info().Str("event_id", event.ID).Msg("Duplicate notification skipped")
		return nil
	}

	msg := Render(event)
	for attempt := 1; ; attempt++ {
		err = s.deliverer.Deliver(ctx, msg)
		if err == nil {
			break
		}
		if attempt >= maxDeliveryAttempts || ctx.Err() != nil {
			if ferr := s.dedup.Forget(context.WithoutCancel(ctx), event.ID); ferr != nil {
				logger.Ctx(ctx).Error().Err(ferr).Str("event_id", event.ID).Msg("Failed to clear dedup marker")
			}
			return s.fail(span, errors.Wrapf(err, "delivery failed after %d attempts", attempt))
		}
		logger.Ctx(ctx).Warn().Err(err).Int("attempt", attempt).Str("event_id", event.ID).Msg("Delivery failed, retrying")
		select {
		case <-ctx.Done():
		case <-time.After(s.backoff * time.Duration(attempt)):
		}
	}

	metrics.NotificationDeliveries.WithLabelValues("delivered").Inc()
	span.AddEvent("Notification delivered")
	logger.Ctx(ctx).Info().
		Str("event_id", event.ID).
		Str("recipient", msg.Recipient).
		Msg("Notification delivered")
	return nil
}

func (s *DeliveryService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Render 生成面向用户的通知文案
func Render(event notify.Event) Message {
	subject := fmt.Sprintf("%s %s is now %s", event.ItemKind, event.ItemID, event.NewStatus)
	body := event.Summary
	if body == "" {
		body = fmt.Sprintf("Status changed from %s to %s.", event.PreviousStatus, event.NewStatus)
	}
	return Message{EventID: event.ID, Recipient: event.OwnerID, Subject: subject, Body: body}
}
