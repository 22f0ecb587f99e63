package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/pkg/redis"
	"memberflow/internal/service/membership/domain"
)

// RedisCardRepository 以 Redis 哈希保存会员卡。
// 唯一性与版本校验都在 Lua 脚本里原子完成。
type RedisCardRepository struct {
	client *redis.Client
}

// NewRedisCardRepository 在创建时加载所需的 Lua 脚本
func NewRedisCardRepository(client *redis.Client) (*RedisCardRepository, error) {
	if err := client.LoadEntityScripts(); err != nil {
		return nil, fmt.Errorf("failed to load card scripts: %w", err)
	}
	return &RedisCardRepository{client: client}, nil
}

func cardKey(id string) string { return "mf:card:" + id }

func cardOwnerKey(userID, merchantID string) string {
	return fmt.Sprintf("mf:card:owner:%s:%s", userID, merchantID)
}

func userCardsKey(userID string) string { return "mf:cards:user:" + userID }

func (r *RedisCardRepository) Insert(ctx context.Context, card *domain.Card) error {
	keys := []string{cardKey(card.ID), cardOwnerKey(card.UserID, card.MerchantID), userCardsKey(card.UserID)}
	args := append([]interface{}{card.ID}, cardFields(card)...)

	res, err := r.client.RunScript(ctx, redis.ScriptInsertUnique, keys, args...)
	if err != nil {
		return redis.Translate(err, domain.ErrCardNotFound)
	}
	code, err := redis.ScriptResult(res)
	if err != nil {
		return err
	}
	if code == 0 {
		return errors.Wrapf(apperr.ErrConflict, "card for user %s at merchant %s", card.UserID, card.MerchantID)
	}
	return nil
}

func (r *RedisCardRepository) Get(ctx context.Context, id string) (*domain.Card, error) {
	fields, err := r.client.GetClient().HGetAll(ctx, cardKey(id)).Result()
	if err != nil {
		return nil, redis.Translate(err, domain.ErrCardNotFound)
	}
	if len(fields) == 0 {
		return nil, domain.ErrCardNotFound
	}
	return parseCard(fields)
}

func (r *RedisCardRepository) Update(ctx context.Context, card *domain.Card, expectedVersion int64) error {
	args := []interface{}{
		expectedVersion, expectedVersion + 1,
		"points", card.Points,
		"tier", string(card.Tier),
		"updated_at", card.UpdatedAt.Format(time.RFC3339Nano),
	}
	res, err := r.client.RunScript(ctx, redis.ScriptCompareAndSet, []string{cardKey(card.ID)}, args...)
	if err != nil {
		return redis.Translate(err, domain.ErrCardNotFound)
	}
	code, err := redis.ScriptResult(res)
	if err != nil {
		return err
	}
	switch code {
	case 1:
		card.Version = expectedVersion + 1
		return nil
	case -1:
		return domain.ErrCardNotFound
	default:
		return errors.Wrapf(apperr.ErrConflict, "card %s is no longer at version %d", card.ID, expectedVersion)
	}
}

func (r *RedisCardRepository) ListByOwner(ctx context.Context, userID string) ([]*domain.Card, error) {
	ids, err := r.client.GetClient().SMembers(ctx, userCardsKey(userID)).Result()
	if err != nil {
		return nil, redis.Translate(err, domain.ErrCardNotFound)
	}
	cards := make([]*domain.Card, 0, len(ids))
	for _, id := range ids {
		c, err := r.Get(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	domain.SortCards(cards)
	return cards, nil
}

func cardFields(c *domain.Card) []interface{} {
	return []interface{}{
		"id", c.ID,
		"user_id", c.UserID,
		"merchant_id", c.MerchantID,
		"points", c.Points,
		"tier", string(c.Tier),
		"version", c.Version,
		"created_at", c.CreatedAt.Format(time.RFC3339Nano),
		"updated_at", c.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func parseCard(f map[string]string) (*domain.Card, error) {
	points, err := strconv.ParseInt(f["points"], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "corrupt card points")
	}
	version, err := strconv.ParseInt(f["version"], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "corrupt card version")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, f["created_at"])
	if err != nil {
		return nil, errors.Wrap(err, "corrupt card created_at")
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, f["updated_at"])
	if err != nil {
		return nil, errors.Wrap(err, "corrupt card updated_at")
	}
	return &domain.Card{
		ID:         f["id"],
		UserID:     f["user_id"],
		MerchantID: f["merchant_id"],
		Points:     points,
		Tier:       domain.Tier(f["tier"]),
		Version:    version,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}

// RedisMerchantRepository 从 mf:merchant:{id} 哈希读取商户
type RedisMerchantRepository struct {
	client *redis.Client
}

func NewRedisMerchantRepository(client *redis.Client) *RedisMerchantRepository {
	return &RedisMerchantRepository{client: client}
}

func merchantKey(id string) string { return "mf:merchant:" + id }

func (r *RedisMerchantRepository) Get(ctx context.Context, id string) (*domain.Merchant, error) {
	f, err := r.client.GetClient().HGetAll(ctx, merchantKey(id)).Result()
	if err != nil {
		return nil, redis.Translate(err, domain.ErrMerchantNotFound)
	}
	if len(f) == 0 {
		return nil, domain.ErrMerchantNotFound
	}
	m := &domain.Merchant{
		ID:          f["id"],
		Name:        f["name"],
		Slug:        f["slug"],
		AccentColor: f["accent_color"],
		Active:      f["active"] == "1",
	}
	if ts, err := time.Parse(time.RFC3339Nano, f["created_at"]); err == nil {
		m.CreatedAt = ts
	}
	return m, nil
}

// Put 写入商户，供入驻流程与测试预置数据
func (r *RedisMerchantRepository) Put(ctx context.Context, m domain.Merchant) error {
	if err := m.Validate(); err != nil {
		return err
	}
	active := "0"
	if m.Active {
		active = "1"
	}
	err := r.client.GetClient().HSet(ctx, merchantKey(m.ID),
		"id", m.ID,
		"name", m.Name,
		"slug", m.Slug,
		"accent_color", m.AccentColor,
		"active", active,
		"created_at", m.CreatedAt.Format(time.RFC3339Nano),
	).Err()
	return redis.Translate(err, domain.ErrMerchantNotFound)
}
