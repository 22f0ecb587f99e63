package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/pkg/redis"
	"memberflow/internal/service/workflow/domain"
)

const (
	recentItemsKey = "mf:items:recent"
	scanBatch      = 100
)

// RedisItemRepository 以哈希保存实体，以创建时间为分值的有序集合做列表索引
type RedisItemRepository struct {
	client *redis.Client
}

func NewRedisItemRepository(client *redis.Client) (*RedisItemRepository, error) {
	if err := client.LoadEntityScripts(); err != nil {
		return nil, errors.Wrap(err, "failed to load item scripts")
	}
	return &RedisItemRepository{client: client}, nil
}

func itemKey(id string) string { return "mf:item:" + id }

func ownerItemsKey(ownerID string) string { return "mf:items:owner:" + ownerID }

func (r *RedisItemRepository) Insert(ctx context.Context, item *domain.Item) error {
	keys := []string{itemKey(item.ID), ownerItemsKey(item.OwnerID), recentItemsKey}
	args := []interface{}{item.ID, item.CreatedAt.UnixMilli()}
	args = append(args, itemFields(item)...)

	res, err := r.client.RunScript(ctx, redis.ScriptInsertScored, keys, args...)
	if err != nil {
		return redis.Translate(err, domain.ErrItemNotFound)
	}
	code, err := redis.ScriptResult(res)
	if err != nil {
		return err
	}
	if code == 0 {
		return errors.Wrapf(apperr.ErrConflict, "item id %s", item.ID)
	}
	return nil
}

func (r *RedisItemRepository) Get(ctx context.Context, id string) (*domain.Item, error) {
	fields, err := r.client.GetClient().HGetAll(ctx, itemKey(id)).Result()
	if err != nil {
		return nil, redis.Translate(err, domain.ErrItemNotFound)
	}
	if len(fields) == 0 {
		return nil, domain.ErrItemNotFound
	}
	return parseItem(fields)
}

func (r *RedisItemRepository) Update(ctx context.Context, item *domain.Item, expectedVersion int64) error {
	args := []interface{}{
		expectedVersion, expectedVersion + 1,
		"status", string(item.Status),
		"updated_at", item.UpdatedAt.Format(time.RFC3339Nano),
	}
	res, err := r.client.RunScript(ctx, redis.ScriptCompareAndSet, []string{itemKey(item.ID)}, args...)
	if err != nil {
		return redis.Translate(err, domain.ErrItemNotFound)
	}
	code, err := redis.ScriptResult(res)
	if err != nil {
		return err
	}
	switch code {
	case 1:
		item.Version = expectedVersion + 1
		return nil
	case -1:
		return domain.ErrItemNotFound
	default:
		return errors.Wrapf(apperr.ErrConflict, "item %s is no longer at version %d", item.ID, expectedVersion)
	}
}

func (r *RedisItemRepository) ListByOwner(ctx context.Context, ownerID string, filter domain.ListFilter) ([]*domain.Item, error) {
	return r.scan(ctx, ownerItemsKey(ownerID), filter)
}

func (r *RedisItemRepository) ListRecent(ctx context.Context, filter domain.ListFilter) ([]*domain.Item, error) {
	return r.scan(ctx, recentItemsKey, filter)
}

// scan 按分值倒序分批读取索引，直到凑满 filter.Limit 条或索引耗尽。
// 同分成员在 ZREVRANGE 中按 id 倒序排列，因此凑满之后还要读完与第 Limit 条同分的整组，
// 排序截断后才与创建时间倒序、id 正序一致。
func (r *RedisItemRepository) scan(ctx context.Context, index string, filter domain.ListFilter) ([]*domain.Item, error) {
	filter = filter.Normalize()
	rdb := r.client.GetClient()

	var (
		out      []*domain.Item
		bounded  bool
		boundary float64
		done     bool
	)
	for start := int64(0); !done; start += scanBatch {
		members, err := rdb.ZRevRangeWithScores(ctx, index, start, start+scanBatch-1).Result()
		if err != nil {
			return nil, redis.Translate(err, domain.ErrItemNotFound)
		}
		if len(members) == 0 {
			break
		}
		if len(members) < scanBatch {
			done = true
		}
		if bounded {
			members = withinBoundary(members, boundary, &done)
			if len(members) == 0 {
				break
			}
		}

		pipe := rdb.Pipeline()
		cmds := make([]*goredis.MapStringStringCmd, len(members))
		for i, m := range members {
			cmds[i] = pipe.HGetAll(ctx, itemKey(fmt.Sprint(m.Member)))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, redis.Translate(err, domain.ErrItemNotFound)
		}

		for i, cmd := range cmds {
			if bounded && members[i].Score < boundary {
				done = true
				break
			}
			fields := cmd.Val()
			if len(fields) == 0 {
				continue
			}
			it, err := parseItem(fields)
			if err != nil {
				return nil, err
			}
			if !filter.Matches(it) {
				continue
			}
			out = append(out, it)
			if !bounded && len(out) == filter.Limit {
				bounded = true
				boundary = members[i].Score
			}
		}
	}

	domain.SortItems(out)
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// withinBoundary 截掉分值低于 boundary 的成员
func withinBoundary(members []goredis.Z, boundary float64, done *bool) []goredis.Z {
	for i, m := range members {
		if m.Score < boundary {
			*done = true
			return members[:i]
		}
	}
	return members
}

func itemFields(it *domain.Item) []interface{} {
	return []interface{}{
		"id", it.ID,
		"kind", string(it.Kind),
		"owner_id", it.OwnerID,
		"label", it.Label,
		"summary", it.Summary,
		"status", string(it.Status),
		"version", it.Version,
		"created_at", it.CreatedAt.Format(time.RFC3339Nano),
		"updated_at", it.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func parseItem(f map[string]string) (*domain.Item, error) {
	version, err := strconv.ParseInt(f["version"], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "corrupt item version")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, f["created_at"])
	if err != nil {
		return nil, errors.Wrap(err, "corrupt item created_at")
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, f["updated_at"])
	if err != nil {
		return nil, errors.Wrap(err, "corrupt item updated_at")
	}
	return &domain.Item{
		ID:        f["id"],
		Kind:      domain.Kind(f["kind"]),
		OwnerID:   f["owner_id"],
		Label:     f["label"],
		Summary:   f["summary"],
		Status:    domain.Status(f["status"]),
		Version:   version,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}
