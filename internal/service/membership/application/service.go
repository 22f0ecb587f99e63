// internal/service/membership/application/service.go
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/pkg/logger"
	"memberflow/internal/pkg/metrics"
	"memberflow/internal/pkg/notify"
	"memberflow/internal/service/membership/domain"
)

const (
	// maxWriteAttempts 乐观锁冲突时的最大重读次数
	maxWriteAttempts = 3
	notifySource     = "membership"

	DefaultStoreTimeout = 3 * time.Second
)

// LedgerService 会员账本：入会与积分累加。
// 服务本身不持有可变共享状态，同一张卡的并发写入由存储层的条件写保证。
type LedgerService struct {
	cards        domain.CardRepository
	merchants    domain.MerchantRepository
	notifier     notify.Dispatcher
	tracer       trace.Tracer
	storeTimeout time.Duration

	now   func() time.Time
	newID func() string
}

func NewLedgerService(cards domain.CardRepository, merchants domain.MerchantRepository, notifier notify.Dispatcher, tracer trace.Tracer, storeTimeout time.Duration) *LedgerService {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &LedgerService{
		cards:        cards,
		merchants:    merchants,
		notifier:     notifier,
		tracer:       tracer,
		storeTimeout: storeTimeout,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        func() string { return uuid.New().String() },
	}
}

// Join 为用户在商户下开卡。唯一性完全依赖存储层的条件插入，
// 并发的多次 Join 只有一次成功，其余得到 ErrAlreadyMember。
func (s *LedgerService) Join(ctx context.Context, userID, merchantID string) (*domain.Card, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Join")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("merchant.id", merchantID),
	)

	if userID == "" || merchantID == "" {
		return nil, s.fail(ctx, span, "join", errors.Wrap(apperr.ErrInvalidInput, "user id and merchant id are required"))
	}

	merchant, err := s.getMerchant(ctx, merchantID)
	if err != nil {
		return nil, s.fail(ctx, span, "join", err)
	}
	if !merchant.Active {
		return nil, s.fail(ctx, span, "join", errors.Wrapf(domain.ErrMerchantInactive, "merchant %s", merchant.Slug))
	}

	card, err := domain.NewCard(s.newID(), userID, merchantID, s.now())
	if err != nil {
		return nil, s.fail(ctx, span, "join", err)
	}

	if err := s.insertCard(ctx, card); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			metrics.MembershipJoins.WithLabelValues("already_member").Inc()
			logger.Ctx(ctx).Warn().Str("user_id", userID).Str("merchant_id", merchantID).Msg("Join rejected: already a member")
			span.AddEvent("Join rejected: already a member")
			return nil, domain.ErrAlreadyMember
		}
		return nil, s.fail(ctx, span, "join", err)
	}

	metrics.MembershipJoins.WithLabelValues("created").Inc()
	logger.Ctx(ctx).Info().Str("card_id", card.ID).Str("user_id", userID).Str("merchant_id", merchantID).Msg("Membership card created")
	span.AddEvent("Membership card created")
	return card, nil
}

// Accrue 为会员卡累加积分，必要时晋升等级。
// 写入带版本前置条件；版本冲突说明卡已被并发修改，重新读取后再应用一次。
func (s *LedgerService) Accrue(ctx context.Context, cardID string, points int64) (*domain.Card, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Accrue")
	defer span.End()
	span.SetAttributes(
		attribute.String("card.id", cardID),
		attribute.Int64("points", points),
	)

	if points <= 0 {
		return nil, s.fail(ctx, span, "accrue", domain.ErrInvalidPoints)
	}

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		card, err := s.getCard(ctx, cardID)
		if err != nil {
			return nil, s.fail(ctx, span, "accrue", err)
		}

		previousTier := card.Tier
		expectedVersion := card.Version
		promoted, err := card.Accrue(points, s.now())
		if err != nil {
			return nil, s.fail(ctx, span, "accrue", err)
		}

		err = s.updateCard(ctx, card, expectedVersion)
		if errors.Is(err, apperr.ErrConflict) {
			span.AddEvent("Version conflict, retrying", trace.WithAttributes(attribute.Int("attempt", attempt)))
			continue
		}
		if err != nil {
			return nil, s.fail(ctx, span, "accrue", err)
		}

		metrics.MembershipAccruals.WithLabelValues("applied").Inc()
		logger.Ctx(ctx).Info().Str("card_id", card.ID).Int64("points", points).Int64("balance", card.Points).Str("tier", string(card.Tier)).Msg("Points accrued")

		if promoted {
			metrics.TierPromotions.WithLabelValues(string(card.Tier)).Inc()
			span.AddEvent("Tier promoted", trace.WithAttributes(
				attribute.String("tier.previous", string(previousTier)),
				attribute.String("tier.new", string(card.Tier)),
			))
			notify.Fire(ctx, s.notifier, s.promotionEvent(card, previousTier), notifySource)
		}
		return card, nil
	}

	return nil, s.fail(ctx, span, "accrue", errors.Wrapf(apperr.ErrConflict, "card %s kept changing concurrently", cardID))
}

// GetCard 按 ID 查询会员卡
func (s *LedgerService) GetCard(ctx context.Context, cardID string) (*domain.Card, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.GetCard")
	defer span.End()

	card, err := s.getCard(ctx, cardID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return card, nil
}

// ListCards 返回用户的全部会员卡，创建时间倒序
func (s *LedgerService) ListCards(ctx context.Context, userID string) ([]*domain.Card, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.ListCards")
	defer span.End()

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	defer observe("card.list", time.Now())

	cards, err := s.cards.ListByOwner(storeCtx, userID)
	if err != nil {
		err = apperr.FromStore(err)
		span.RecordError(err)
		return nil, err
	}
	domain.SortCards(cards)
	return cards, nil
}

// DescribeTier 委托给等级表，只用于展示
func (s *LedgerService) DescribeTier(tier domain.Tier) string {
	return tier.Describe()
}

func (s *LedgerService) promotionEvent(card *domain.Card, previous domain.Tier) notify.Event {
	return notify.Event{
		ID:             s.newID(),
		ItemID:         card.ID,
		ItemKind:       "MEMBERSHIP",
		OwnerID:        card.UserID,
		PreviousStatus: string(previous),
		NewStatus:      string(card.Tier),
		Summary:        fmt.Sprintf("Membership %s reached %s with %d points", card.ID, card.Tier.Name(), card.Points),
		OccurredAt:     card.UpdatedAt,
	}
}

func (s *LedgerService) getMerchant(ctx context.Context, id string) (*domain.Merchant, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	defer observe("merchant.get", time.Now())

	m, err := s.merchants.Get(storeCtx, id)
	return m, apperr.FromStore(err)
}

func (s *LedgerService) getCard(ctx context.Context, id string) (*domain.Card, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	defer observe("card.get", time.Now())

	c, err := s.cards.Get(storeCtx, id)
	return c, apperr.FromStore(err)
}

func (s *LedgerService) insertCard(ctx context.Context, card *domain.Card) error {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	defer observe("card.insert", time.Now())

	return apperr.FromStore(s.cards.Insert(storeCtx, card))
}

func (s *LedgerService) updateCard(ctx context.Context, card *domain.Card, expectedVersion int64) error {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	defer observe("card.update", time.Now())

	return apperr.FromStore(s.cards.Update(storeCtx, card, expectedVersion))
}

// fail 统一记录 span、指标和日志。调用方 bug 类错误用 Error 级别，业务拒绝用 Warn。
func (s *LedgerService) fail(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	result := "error"
	if k := apperr.Kind(err); k != nil {
		result = k.Error()
	}
	switch op {
	case "join":
		metrics.MembershipJoins.WithLabelValues(result).Inc()
	case "accrue":
		metrics.MembershipAccruals.WithLabelValues(result).Inc()
	}

	ev := logger.Ctx(ctx).Warn()
	if apperr.IsCallerBug(err) || apperr.Kind(err) == nil {
		ev = logger.Ctx(ctx).Error()
	}
	ev.Err(err).Str("op", op).Bool("retryable", apperr.Retryable(err)).Msg("Ledger operation failed")
	return err
}

func observe(op string, start time.Time) {
	metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
