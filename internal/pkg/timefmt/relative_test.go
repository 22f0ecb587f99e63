package timefmt

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestFormatRelative_Buckets(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"zero", 0, "Just now"},
		{"59s", 59 * time.Second, "Just now"},
		{"90s floors to one minute", 90 * time.Second, "1m ago"},
		{"59m", 59 * time.Minute, "59m ago"},
		{"1h", time.Hour, "1h ago"},
		{"23h59m", 23*time.Hour + 59*time.Minute, "23h ago"},
		{"24h", 24 * time.Hour, "Yesterday"},
		{"25h is yesterday, not 1d", 25 * time.Hour, "Yesterday"},
		{"47h", 47 * time.Hour, "Yesterday"},
		{"2d", 48 * time.Hour, "2d ago"},
		{"6d", 6 * day, "6d ago"},
		{"7d", 7 * day, "1w ago"},
		{"34d", 34 * day, "4w ago"},
		{"35d", 35 * day, "1mo ago"},
		{"359d", 359 * day, "11mo ago"},
		{"360d never reads 0y", 360 * day, "1y ago"},
		{"365d", 365 * day, "1y ago"},
		{"800d", 800 * day, "2y ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRelative(now, now.Add(-tt.ago)))
		})
	}
}

func TestFormatRelative_FutureIsClamped(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Just now", FormatRelative(now, now.Add(5*time.Second)))
	assert.Equal(t, "Just now", FormatRelative(now, now.Add(72*time.Hour)))
}

func TestFormatRelative_NeverNegative(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("output never carries a minus sign or a zero count", prop.ForAll(
		func(offsetSeconds int64) bool {
			out := FormatRelative(now, now.Add(time.Duration(offsetSeconds)*time.Second))
			return !strings.Contains(out, "-") && !strings.HasPrefix(out, "0")
		},
		gen.Int64Range(-10*365*24*3600, 10*365*24*3600),
	))
	properties.TestingRun(t)
}
