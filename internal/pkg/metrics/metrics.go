// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "memberflow"

var (
	// MembershipJoins 按结果统计入会请求：created / already_member / error
	MembershipJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "membership_joins_total",
		Help:      "Join attempts by outcome.",
	}, []string{"result"})

	MembershipAccruals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "membership_accruals_total",
		Help:      "Point accrual attempts by outcome.",
	}, []string{"result"})

	TierPromotions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "membership_tier_promotions_total",
		Help:      "Tier promotions by the tier reached.",
	}, []string{"tier"})

	WorkflowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflow_transitions_total",
		Help:      "Applied workflow status transitions.",
	}, []string{"kind", "from", "to"})

	WorkflowRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflow_rejections_total",
		Help:      "Rejected workflow transitions by reason.",
	}, []string{"kind", "reason"})

	// NotificationFailures 通知失败不会回滚状态变更，只能在这里被观测到
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Notification dispatch failures by source.",
	}, []string{"source"})

	// NotificationDeliveries 消费端按结果统计：delivered / duplicate / dead_letter
	NotificationDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_deliveries_total",
		Help:      "Consumed notification events by outcome.",
	}, []string{"result"})

	StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_call_duration_seconds",
		Help:      "Latency of repository calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
)
