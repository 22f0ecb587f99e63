// internal/service/workflow/application/service.go
package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/pkg/authctx"
	"memberflow/internal/pkg/logger"
	"memberflow/internal/pkg/metrics"
	"memberflow/internal/pkg/notify"
	"memberflow/internal/service/workflow/domain"
)

const (
	maxWriteAttempts = 3
	notifySource     = "workflow"

	DefaultStoreTimeout = 3 * time.Second
)

// WorkflowService 工单、订单、文档共用的状态机服务。
// 同一实体的并发流转由存储层的版本前置条件裁决，服务本身无共享可变状态。
type WorkflowService struct {
	items        domain.ItemRepository
	notifier     notify.Dispatcher
	tracer       trace.Tracer
	storeTimeout time.Duration

	now   func() time.Time
	newID func() string
}

func NewWorkflowService(items domain.ItemRepository, notifier notify.Dispatcher, tracer trace.Tracer, storeTimeout time.Duration) *WorkflowService {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &WorkflowService{
		items:        items,
		notifier:     notifier,
		tracer:       tracer,
		storeTimeout: storeTimeout,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        func() string { return uuid.New().String() },
	}
}

// Submit 以初始状态创建实体，所有者为提交者
func (s *WorkflowService) Submit(ctx context.Context, kind domain.Kind, ownerID, label, summary string) (*domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("item.kind", string(kind)),
		attribute.String("owner.id", ownerID),
	)

	item, err := domain.NewItem(s.newID(), kind, ownerID, label, summary, s.now())
	if err != nil {
		return nil, s.fail(ctx, span, kind, "submit", err)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	start := time.Now()
	err = apperr.FromStore(s.items.Insert(storeCtx, item))
	observe("item.insert", start)
	if err != nil {
		return nil, s.fail(ctx, span, kind, "submit", err)
	}

	logger.Ctx(ctx).Info().Str("item_id", item.ID).Str("kind", string(kind)).Str("owner_id", ownerID).Msg("Workflow item submitted")
	span.AddEvent("Workflow item submitted")
	return item, nil
}

// Get 查询单个实体。对非员工隐藏他人的实体，统一返回 NotFound。
func (s *WorkflowService) Get(ctx context.Context, id string, actor authctx.Actor) (*domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.Get")
	defer span.End()

	item, err := s.getItem(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !item.VisibleTo(actor) {
		return nil, domain.ErrItemNotFound
	}
	return item, nil
}

// Transition 把实体推进到 target。检查顺序：
// 不存在 -> 同状态（无操作，不发通知；看不到该实体的客户得到 ErrForbidden）-> 非法边 -> 角色无权。
// 每次真正生效的流转恰好调用一次 dispatcher。
func (s *WorkflowService) Transition(ctx context.Context, id string, target domain.Status, actor authctx.Actor) (*domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.Transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("item.id", id),
		attribute.String("status.target", string(target)),
		attribute.String("actor.role", string(actor.Role)),
	)

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		item, err := s.getItem(ctx, id)
		if err != nil {
			return nil, s.fail(ctx, span, "", "transition", err)
		}

		previous := item.Status
		expectedVersion := item.Version
		changed, err := item.TransitionTo(target, actor, s.now())
		if err != nil {
			return nil, s.fail(ctx, span, item.Kind, "transition", err)
		}
		if !changed {
			span.AddEvent("Transition is a no-op")
			return item, nil
		}

		err = s.updateItem(ctx, item, expectedVersion)
		if errors.Is(err, apperr.ErrConflict) {
			span.AddEvent("Version conflict, retrying", trace.WithAttributes(attribute.Int("attempt", attempt)))
			continue
		}
		if err != nil {
			return nil, s.fail(ctx, span, item.Kind, "transition", err)
		}

		metrics.WorkflowTransitions.WithLabelValues(string(item.Kind), string(previous), string(item.Status)).Inc()
		logger.Ctx(ctx).Info().
			Str("item_id", item.ID).
			Str("kind", string(item.Kind)).
			Str("from", string(previous)).
			Str("to", string(item.Status)).
			Str("actor_role", string(actor.Role)).
			Msg("Workflow item transitioned")
		span.AddEvent("Workflow item transitioned")

		notify.Fire(ctx, s.notifier, s.transitionEvent(item, previous, actor), notifySource)
		return item, nil
	}

	return nil, s.fail(ctx, span, "", "transition", errors.Wrapf(apperr.ErrConflict, "item %s kept changing concurrently", id))
}

// ListByOwner 返回用户自己的实体
func (s *WorkflowService) ListByOwner(ctx context.Context, ownerID string, filter domain.ListFilter) ([]*domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.ListByOwner")
	defer span.End()

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	defer observe("item.list_owner", time.Now())

	items, err := s.items.ListByOwner(storeCtx, ownerID, filter.Normalize())
	if err != nil {
		err = apperr.FromStore(err)
		span.RecordError(err)
		return nil, err
	}
	domain.SortItems(items)
	return items, nil
}

// ListRecent 后台最近动态，仅员工可见。每条附带相对时间与展示信息。
func (s *WorkflowService) ListRecent(ctx context.Context, actor authctx.Actor, filter domain.ListFilter) ([]ActivityEntry, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.ListRecent")
	defer span.End()

	if !actor.IsStaff() {
		err := errors.Wrap(apperr.ErrForbidden, "recent activity is staff only")
		span.RecordError(err)
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	start := time.Now()
	items, err := s.items.ListRecent(storeCtx, filter.Normalize())
	observe("item.list_recent", start)
	if err != nil {
		err = apperr.FromStore(err)
		span.RecordError(err)
		return nil, err
	}
	domain.SortItems(items)

	now := s.now()
	entries := make([]ActivityEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, ToActivityEntry(it, now))
	}
	return entries, nil
}

func (s *WorkflowService) transitionEvent(item *domain.Item, previous domain.Status, actor authctx.Actor) notify.Event {
	return notify.Event{
		ID:             s.newID(),
		ItemID:         item.ID,
		ItemKind:       string(item.Kind),
		OwnerID:        item.OwnerID,
		PreviousStatus: string(previous),
		NewStatus:      string(item.Status),
		Summary: fmt.Sprintf("%s %q moved from %s to %s",
			strings.ToLower(string(item.Kind)), item.Label, previous.Label(item.Kind), item.Status.Label(item.Kind)),
		ActorID:    actor.UserID,
		ActorRole:  string(actor.Role),
		OccurredAt: item.UpdatedAt,
	}
}

func (s *WorkflowService) getItem(ctx context.Context, id string) (*domain.Item, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	defer observe("item.get", time.Now())

	it, err := s.items.Get(storeCtx, id)
	return it, apperr.FromStore(err)
}

func (s *WorkflowService) updateItem(ctx context.Context, item *domain.Item, expectedVersion int64) error {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	defer observe("item.update", time.Now())

	return apperr.FromStore(s.items.Update(storeCtx, item, expectedVersion))
}

func (s *WorkflowService) fail(ctx context.Context, span trace.Span, kind domain.Kind, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	reason := "error"
	if k := apperr.Kind(err); k != nil {
		reason = k.Error()
	}
	if op == "transition" {
		metrics.WorkflowRejections.WithLabelValues(string(kind), reason).Inc()
	}

	ev := logger.Ctx(ctx).Warn()
	if apperr.IsCallerBug(err) || apperr.Kind(err) == nil {
		ev = logger.Ctx(ctx).Error()
	}
	ev.Err(err).Str("op", op).Str("kind", string(kind)).Bool("retryable", apperr.Retryable(err)).Msg("Workflow operation failed")
	return err
}

func observe(op string, start time.Time) {
	metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
