package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/pkg/authctx"
	"memberflow/internal/pkg/notify"
	"memberflow/internal/service/workflow/domain"
	"memberflow/internal/service/workflow/infrastructure"
)

var (
	fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	staff    = authctx.Actor{UserID: "s-1", Role: authctx.RoleStaff}
	owner    = authctx.Actor{UserID: "u-1", Role: authctx.RoleCustomer}
	stranger = authctx.Actor{UserID: "u-2", Role: authctx.RoleCustomer}
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (r *recorder) Notify(_ context.Context, e notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) snapshot() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

func newTestService(t *testing.T, items domain.ItemRepository, n notify.Dispatcher) *WorkflowService {
	t.Helper()
	svc := NewWorkflowService(items, n, noop.NewTracerProvider().Tracer("test"), time.Second)
	var seq atomic.Int64
	svc.newID = func() string { return fmt.Sprintf("id-%03d", seq.Add(1)) }
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func submit(t *testing.T, svc *WorkflowService, kind domain.Kind, ownerID string) *domain.Item {
	t.Helper()
	it, err := svc.Submit(context.Background(), kind, ownerID, "Two flat whites", "table 4")
	require.NoError(t, err)
	return it
}

func TestSubmit(t *testing.T) {
	svc := newTestService(t, infrastructure.NewMemoryItemRepository(), &recorder{})

	it := submit(t, svc, domain.KindOrder, "u-1")
	assert.Equal(t, domain.StatusNew, it.Status)
	assert.Equal(t, "u-1", it.OwnerID)

	_, err := svc.Submit(context.Background(), domain.KindTicket, "u-1", "  ", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestTransitionNewToDoneIsInvalid(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, infrastructure.NewMemoryItemRepository(), rec)
	it := submit(t, svc, domain.KindTicket, "u-1")

	_, err := svc.Transition(context.Background(), it.ID, domain.StatusDone, staff)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.False(t, apperr.Retryable(err))
	assert.Empty(t, rec.snapshot())
}

func TestOwnerCancelsPendingOrder(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, infrastructure.NewMemoryItemRepository(), rec)
	it := submit(t, svc, domain.KindOrder, "u-1")

	got, err := svc.Transition(context.Background(), it.ID, domain.StatusCancelled, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	assert.Equal(t, int64(2), got.Version)

	events := rec.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, it.ID, events[0].ItemID)
	assert.Equal(t, "NEW", events[0].PreviousStatus)
	assert.Equal(t, "CANCELLED", events[0].NewStatus)
	assert.Equal(t, "ORDER", events[0].ItemKind)
	assert.Equal(t, "u-1", events[0].ActorID)
	assert.Contains(t, events[0].Summary, "Pending")
}

func TestNonOwnerCannotCancelAcceptedOrder(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, infrastructure.NewMemoryItemRepository(), rec)
	it := submit(t, svc, domain.KindOrder, "u-1")

	_, err := svc.Transition(context.Background(), it.ID, domain.StatusInProgress, staff)
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), it.ID, domain.StatusCancelled, stranger)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Len(t, rec.snapshot(), 1)

	stored, err := svc.Get(context.Background(), it.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, stored.Status)
}

func TestSameStatusTransitionIsSilentNoop(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, infrastructure.NewMemoryItemRepository(), rec)
	it := submit(t, svc, domain.KindDocument, "u-1")

	for _, actor := range []authctx.Actor{owner, staff, owner} {
		got, err := svc.Transition(context.Background(), it.ID, domain.StatusNew, actor)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Version)
	}
	assert.Empty(t, rec.snapshot())
}

func TestTransitionUnknownItem(t *testing.T) {
	svc := newTestService(t, infrastructure.NewMemoryItemRepository(), &recorder{})
	_, err := svc.Transition(context.Background(), "nope", domain.StatusDone, staff)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNotificationFailureKeepsTransition(t *testing.T) {
	rec := &recorder{err: errors.New("smtp relay refused")}
	svc := newTestService(t, infrastructure.NewMemoryItemRepository(), rec)
	it := submit(t, svc, domain.KindTicket, "u-1")

	got, err := svc.Transition(context.Background(), it.ID, domain.StatusInProgress, staff)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	assert.Len(t, rec.snapshot(), 1)
}

func TestNotificationSurvivesCancelledRequest(t *testing.T) {
	var seenErr atomic.Value
	d := notify.DispatcherFunc(func(ctx context.Context, _ notify.Event) error {
		seenErr.Store(fmt.Sprint(ctx.Err()))
		return nil
	})
	svc := newTestService(t, infrastructure.NewMemoryItemRepository(), d)
	it := submit(t, svc, domain.KindTicket, "u-1")

	ctx, cancel := context.WithCancel(context.Background())
	svc.items = cancelAfterUpdate{ItemRepository: svc.items, cancel: cancel}

	_, err := svc.Transition(ctx, it.ID, domain.StatusArchived, staff)
	require.NoError(t, err)
	assert.Equal(t, "<nil>", seenErr.Load())
}

// cancelAfterUpdate 在写入成功后立即取消请求 context
type cancelAfterUpdate struct {
	domain.ItemRepository
	cancel context.CancelFunc
}

func (c cancelAfterUpdate) Update(ctx context.Context, item *domain.Item, expectedVersion int64) error {
	err := c.ItemRepository.Update(ctx, item, expectedVersion)
	c.cancel()
	return err
}

func TestConcurrentTransitionsNotifyOnce(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, infrastructure.NewMemoryItemRepository(), rec)
	it := submit(t, svc, domain.KindTicket, "u-1")

	const n = 16
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			got, err := svc.Transition(context.Background(), it.ID, domain.StatusInProgress, staff)
			if errors.Is(err, apperr.ErrConflict) {
				return nil
			}
			if err != nil {
				return err
			}
			if got.Status != domain.StatusInProgress {
				return errors.Errorf("unexpected status %s", got.Status)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, rec.snapshot(), 1)
}

func TestGetHidesOtherCustomersItems(t *testing.T) {
	svc := newTestService(t, infrastructure.NewMemoryItemRepository(), &recorder{})
	it := submit(t, svc, domain.KindOrder, "u-1")

	_, err := svc.Get(context.Background(), it.ID, stranger)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := svc.Get(context.Background(), it.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, it.ID, got.ID)
}

func TestSameStatusTransitionDoesNotLeakOtherCustomersItems(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, infrastructure.NewMemoryItemRepository(), rec)
	it, err := svc.Submit(context.Background(), domain.KindOrder, "u-1", "Two flat whites", "table 4")
	require.NoError(t, err)

	got, err := svc.Transition(context.Background(), it.ID, domain.StatusNew, stranger)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Nil(t, got)
	assert.NotContains(t, err.Error(), "Two flat whites")
	assert.Empty(t, rec.snapshot())
}

func TestListRecent(t *testing.T) {
	repo := infrastructure.NewMemoryItemRepository()
	svc := newTestService(t, repo, &recorder{})
	ctx := context.Background()

	old, err := domain.NewItem("old", domain.KindTicket, "u-2", "Broken link", "", fixedNow.Add(-25*time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, old))
	fresh := submit(t, svc, domain.KindOrder, "u-1")

	_, err = svc.ListRecent(ctx, owner, domain.ListFilter{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	entries, err := svc.ListRecent(ctx, staff, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, fresh.ID, entries[0].ID)
	assert.Equal(t, "Just now", entries[0].Age)
	assert.Equal(t, "Pending", entries[0].Display.Label)
	assert.Equal(t, []string{"IN_PROGRESS", "CANCELLED"}, entries[0].NextStatus)
	assert.Equal(t, "Yesterday", entries[1].Age)

	entries, err = svc.ListRecent(ctx, staff, domain.ListFilter{Kind: domain.KindTicket})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "old", entries[0].ID)
}

func TestListByOwner(t *testing.T) {
	svc := newTestService(t, infrastructure.NewMemoryItemRepository(), &recorder{})
	ctx := context.Background()

	a := submit(t, svc, domain.KindOrder, "u-1")
	b := submit(t, svc, domain.KindTicket, "u-1")
	submit(t, svc, domain.KindTicket, "u-2")

	items, err := svc.ListByOwner(ctx, "u-1", domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	// 创建时间相同，按 ID 升序
	assert.Equal(t, a.ID, items[0].ID)
	assert.Equal(t, b.ID, items[1].ID)
}
