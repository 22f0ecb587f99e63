// internal/service/membership/domain/tier.go
package domain

import (
	"strings"

	"github.com/pkg/errors"

	"memberflow/internal/pkg/apperr"
)

// Tier 会员等级，按 Bronze < Silver < Gold 排序
type Tier string

const (
	TierBronze Tier = "BRONZE"
	TierSilver Tier = "SILVER"
	TierGold   Tier = "GOLD"
)

type tierSpec struct {
	name    string
	ceiling int64 // 超过该积分即晋升到下一等级
	perks   string
}

// tierOrder 与 tierTable 是等级的唯一来源，新增等级只需修改这里
var tierOrder = []Tier{TierBronze, TierSilver, TierGold}

var tierTable = map[Tier]tierSpec{
	TierBronze: {name: "Bronze", ceiling: 500, perks: "Member-only offers and a point on every visit."},
	TierSilver: {name: "Silver", ceiling: 1000, perks: "5% off every order and early access to new items."},
	TierGold:   {name: "Gold", ceiling: 2000, perks: "10% off every order, free delivery and a birthday reward."},
}

// Tiers 按从低到高的顺序返回全部等级
func Tiers() []Tier {
	out := make([]Tier, len(tierOrder))
	copy(out, tierOrder)
	return out
}

// ParseTier 不区分大小写
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", errors.Wrapf(apperr.ErrInvalidInput, "unknown tier %q", s)
	}
	return t, nil
}

func (t Tier) Valid() bool {
	_, ok := tierTable[t]
	return ok
}

// Name 展示用名称
func (t Tier) Name() string { return tierTable[t].name }

// Ceiling 返回等级的积分上限
func (t Tier) Ceiling() int64 { return tierTable[t].ceiling }

// Perks 返回等级权益描述
func (t Tier) Perks() string { return tierTable[t].perks }

// Rank 返回等级序号，未知等级为 -1
func (t Tier) Rank() int {
	for i, x := range tierOrder {
		if x == t {
			return i
		}
	}
	return -1
}

// Next 返回下一个等级；已是最高等级时 ok 为 false
func (t Tier) Next() (Tier, bool) {
	r := t.Rank()
	if r < 0 || r+1 >= len(tierOrder) {
		return "", false
	}
	return tierOrder[r+1], true
}

// Describe 生成展示文案，不参与积分计算
func (t Tier) Describe() string {
	if !t.Valid() {
		return ""
	}
	return t.Name() + ": " + t.Perks()
}
