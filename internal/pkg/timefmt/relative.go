// Package timefmt 提供管理后台与订单列表共用的时间展示。
package timefmt

import (
	"fmt"
	"time"
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

// FormatRelative 把 then 相对 now 的时间差格式化为展示用的区间文案。
// 所有除法向零取整；then 在未来时按零差值处理。
func FormatRelative(now, then time.Time) string {
	diff := now.Sub(then)
	if diff < 0 {
		diff = 0
	}

	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int64(diff/time.Minute))
	case diff < day:
		return fmt.Sprintf("%dh ago", int64(diff/time.Hour))
	case diff < 2*day:
		return "Yesterday"
	case diff < week:
		return fmt.Sprintf("%dd ago", int64(diff/day))
	case diff < 5*week:
		return fmt.Sprintf("%dw ago", int64(diff/week))
	case diff/month < 12:
		return fmt.Sprintf("%dmo ago", int64(diff/month))
	}

	// 360~364 天时月份已满 12，但年份仍为 0
	years := diff / year
	if years < 1 {
		years = 1
	}
	return fmt.Sprintf("%dy ago", int64(years))
}
