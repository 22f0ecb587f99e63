// internal/pkg/authctx/actor.go
package authctx

import (
	"context"
	"strings"
)

// Role 是调用方的角色，在会话/声明解析时确定一次，然后随 Actor 传入引擎
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
	RoleSystem   Role = "system" // 定时任务等内部调用
)

// Actor 是一次操作的执行者
type Actor struct {
	UserID string
	Role   Role
}

// IsStaff 员工、管理员和系统调用都拥有后台权限
func (a Actor) IsStaff() bool {
	switch a.Role {
	case RoleStaff, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// Owns 判断 actor 是否是 ownerID 对应实体的所有者
func (a Actor) Owns(ownerID string) bool {
	return a.UserID != "" && a.UserID == ownerID
}

// RoleResolver 根据邮箱白名单计算角色。白名单只在这里被检查，业务逻辑只看 Actor.Role。
type RoleResolver struct {
	admins map[string]struct{}
	staff  map[string]struct{}
}

func NewRoleResolver(adminEmails, staffEmails []string) *RoleResolver {
	return &RoleResolver{
		admins: toSet(adminEmails),
		staff:  toSet(staffEmails),
	}
}

// Resolve 返回邮箱对应的角色；未登记的邮箱一律视为顾客
func (r *RoleResolver) Resolve(email string) Role {
	key := normalizeEmail(email)
	if key == "" {
		return RoleCustomer
	}
	if _, ok := r.admins[key]; ok {
		return RoleAdmin
	}
	if _, ok := r.staff[key]; ok {
		return RoleStaff
	}
	return RoleCustomer
}

func toSet(emails []string) map[string]struct{} {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if key := normalizeEmail(e); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type actorKey struct{}

// WithActor 把 actor 放入 context
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// FromContext 取出 actor；不存在时 ok 为 false
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
