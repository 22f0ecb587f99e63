package domain

import "memberflow/internal/pkg/authctx"

// edge 是状态图中的一条有向边
type edge struct {
	from Status
	to   Status
}

// 工单与文档：New -> InProgress -> Done，New/InProgress 均可归档
var reviewGraph = map[Status][]Status{
	StatusNew:        {StatusInProgress, StatusArchived},
	StatusInProgress: {StatusDone, StatusArchived},
}

// 订单：Pending -> Accepted -> Ready -> Completed，Pending/Accepted 可取消
var orderGraph = map[Status][]Status{
	StatusNew:        {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusDone, StatusCancelled},
	StatusDone:       {StatusCompleted},
}

// customerEdges 顾客只能对自己的订单发起这些流转
var customerEdges = map[Kind]map[edge]bool{
	KindOrder: {{from: StatusNew, to: StatusCancelled}: true},
}

func graphFor(k Kind) map[Status][]Status {
	if k == KindOrder {
		return orderGraph
	}
	return reviewGraph
}

// Successors 返回 from 的直接后继；终态返回空
func Successors(k Kind, from Status) []Status {
	next := graphFor(k)[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransition 判断 to 是否是 from 的直接后继。同状态不算一条边。
func CanTransition(k Kind, from, to Status) bool {
	for _, s := range graphFor(k)[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal 没有出边的状态
func IsTerminal(k Kind, s Status) bool {
	return len(graphFor(k)[s]) == 0
}

// UsesStatus 判断该种类的状态图是否包含 s
func UsesStatus(k Kind, s Status) bool {
	g := graphFor(k)
	if _, ok := g[s]; ok {
		return true
	}
	for _, next := range g {
		for _, n := range next {
			if n == s {
				return true
			}
		}
	}
	return false
}

// Permits 判断 actor 能否沿 from->to 推进 ownerID 的实体。
// 员工、管理员、系统可走任意边；顾客只能走 customerEdges 中的边，且必须是所有者。
func Permits(actor authctx.Actor, k Kind, ownerID string, from, to Status) bool {
	if actor.IsStaff() {
		return true
	}
	if actor.Role != authctx.RoleCustomer || !actor.Owns(ownerID) {
		return false
	}
	return customerEdges[k][edge{from: from, to: to}]
}
