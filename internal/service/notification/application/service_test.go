package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/pkg/notify"
)

type setDedup struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (d *setDedup) MarkOnce(ctx context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func (d *setDedup) Forget(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
	return nil
}

type inbox struct {
	mu       sync.Mutex
	messages []Message
	failures int
}

func (b *inbox) Deliver(ctx context.Context, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures > 0 {
		b.failures--
		return errors.New("smtp 421")
	}
	b.messages = append(b.messages, msg)
	return nil
}

func newTestService(box *inbox, dedup *setDedup) *DeliveryService {
	svc := NewDeliveryService(box, dedup, noop.NewTracerProvider().Tracer("test"))
	svc.backoff = time.Millisecond
	return svc
}

func sampleEvent() notify.Event {
	return notify.Event{
		ID:             "evt-1",
		ItemID:         "o-1",
		ItemKind:       "ORDER",
		OwnerID:        "u-1",
		PreviousStatus: "NEW",
		NewStatus:      "IN_PROGRESS",
		OccurredAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHandleDeliversOnce(t *testing.T) {
	box := &inbox{}
	svc := newTestService(box, &setDedup{seen: map[string]bool{}})

	require.NoError(t, svc.Handle(context.Background(), sampleEvent()))
	require.NoError(t, svc.Handle(context.Background(), sampleEvent()))

	require.Len(t, box.messages, 1)
	assert.Equal(t, "u-1", box.messages[0].Recipient)
	assert.Equal(t, "ORDER o-1 is now IN_PROGRESS", box.messages[0].Subject)
	assert.Equal(t, "Status changed from NEW to IN_PROGRESS.", box.messages[0].Body)
}

func TestHandleRetriesTransientFailures(t *testing.T) {
	box := &inbox{failures: maxDeliveryAttempts - 1}
	svc := newTestService(box, &setDedup{seen: map[string]bool{}})

	require.NoError(t, svc.Handle(context.Background(), sampleEvent()))
	assert.Len(t, box.messages, 1)
}

func TestHandleGivesUpAndAllowsRedelivery(t *testing.T) {
	box := &inbox{failures: maxDeliveryAttempts}
	dedup := &setDedup{seen: map[string]bool{}}
	svc := newTestService(box, dedup)

	err := svc.Handle(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.False(t, dedup.seen["evt-1"])

	require.NoError(t, svc.Handle(context.Background(), sampleEvent()))
	assert.Len(t, box.messages, 1)
}

func TestHandleRejectsIncompleteEvents(t *testing.T) {
	svc := newTestService(&inbox{}, &setDedup{seen: map[string]bool{}})
	ev := sampleEvent()
	ev.OwnerID = ""
	assert.ErrorIs(t, svc.Handle(context.Background(), ev), apperr.ErrInvalidInput)
}

func TestHandleDedupFailure(t *testing.T) {
	svc := newTestService(&inbox{}, &setDedup{err: context.DeadlineExceeded})
	assert.ErrorIs(t, svc.Handle(context.Background(), sampleEvent()), apperr.ErrUnavailable)
}

func TestRenderUsesSummaryWhenPresent(t *testing.T) {
	ev := sampleEvent()
	ev.Summary = "Your order is being prepared"
	assert.Equal(t, "Your order is being prepared", Render(ev).Body)
}
