package redis

import (
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"memberflow/internal/pkg/apperr"
)

// ScriptCompareAndSet 带版本前置条件的哈希更新
const ScriptCompareAndSet = "compare_and_set"

// compareAndSetScript
// KEYS[1]: 实体哈希
// ARGV[1]: 期望版本, ARGV[2]: 新版本, ARGV[3..]: field/value 对
// 返回 1 成功, 0 版本不符, -1 实体不存在
const compareAndSetScript = `
local current = redis.call('hget', KEYS[1], 'version')
if not current then
    return -1
end
if tonumber(current) ~= tonumber(ARGV[1]) then
    return 0
end
for i = 3, #ARGV, 2 do
    redis.call('hset', KEYS[1], ARGV[i], ARGV[i + 1])
end
redis.call('hset', KEYS[1], 'version', ARGV[2])
return 1
`

// ScriptInsertUnique 条件插入
const ScriptInsertUnique = "insert_unique"

// insertUniqueScript
// KEYS[1]: 实体哈希, KEYS[2]: 唯一键（可与 KEYS[1] 相同表示只按 ID 唯一）, KEYS[3..]: 需要加入 ID 的索引集合
// ARGV[1]: 实体 ID, ARGV[2..]: field/value 对
// 返回 1 成功, 0 唯一性冲突
const insertUniqueScript = `
if redis.call('exists', KEYS[1]) == 1 then
    return 0
end
if KEYS[2] ~= KEYS[1] then
    if not redis.call('set', KEYS[2], ARGV[1], 'NX') then
        return 0
    end
end
for i = 2, #ARGV, 2 do
    redis.call('hset', KEYS[1], ARGV[i], ARGV[i + 1])
end
for i = 3, #KEYS do
    redis.call('sadd', KEYS[i], ARGV[1])
end
return 1
`

// ScriptInsertScored 条件插入并写入有序索引
const ScriptInsertScored = "insert_scored"

// insertScoredScript
// KEYS[1]: 实体哈希, KEYS[2..]: 需要加入 ID 的有序集合
// ARGV[1]: 实体 ID, ARGV[2]: 排序分值, ARGV[3..]: field/value 对
// 返回 1 成功, 0 ID 已存在
const insertScoredScript = `
if redis.call('exists', KEYS[1]) == 1 then
    return 0
end
for i = 3, #ARGV, 2 do
    redis.call('hset', KEYS[1], ARGV[i], ARGV[i + 1])
end
for i = 2, #KEYS do
    redis.call('zadd', KEYS[i], ARGV[2], ARGV[1])
end
return 1
`

// LoadEntityScripts 注册仓储共用的脚本
func (c *Client) LoadEntityScripts() error {
	scripts := map[string]string{
		ScriptCompareAndSet: compareAndSetScript,
		ScriptInsertUnique:  insertUniqueScript,
		ScriptInsertScored:  insertScoredScript,
	}
	for name, content := range scripts {
		if err := c.LoadScriptFromContent(name, content); err != nil {
			return err
		}
	}
	return nil
}

// Translate 把 go-redis 错误归入引擎的错误分类
func Translate(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, goredis.Nil) {
		return notFound
	}
	if errors.Is(err, goredis.ErrPoolTimeout) || errors.Is(err, goredis.ErrClosed) {
		return apperr.Mark(apperr.ErrUnavailable, err)
	}
	return apperr.FromStore(err)
}

// ScriptResult 把脚本返回值解析为整数结果码
func ScriptResult(v interface{}) (int64, error) {
	code, ok := v.(int64)
	if !ok {
		return 0, errors.Errorf("unexpected result type from Lua script: %T", v)
	}
	return code, nil
}
