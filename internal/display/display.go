// Package display formats bunker data for people: countdown labels and the
// order bunkers are listed in.
package display

import (
	"fmt"
	"sort"
	"time"

	"github.com/raffaelramalhorosa/bunker-status/internal/models"
)

// Labels shown instead of a countdown.
const (
	LabelNow         = "Agora"
	LabelUnderMinute = "Menos de 1 min"
	LabelUnknown     = "Indisponível"
)

const day = 24 * time.Hour

// FormatCountdown renders a remaining duration. Negative values are
// treated as zero.
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return LabelNow
	}
	if d < time.Minute {
		return LabelUnderMinute
	}

	days := int64(d / day)
	hours := int64((d % day) / time.Hour)
	minutes := int64((d % time.Hour) / time.Minute)
	seconds := int64((d % time.Minute) / time.Second)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	default:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
}

// Remaining is the time left until b's timestamp, clamped at zero.
func Remaining(b models.Bunker, now time.Time) time.Duration {
	d := time.UnixMilli(b.Timestamp).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Countdown is the label for b at now.
func Countdown(b models.Bunker, now time.Time) string {
	if b.Timestamp <= 0 {
		return LabelUnknown
	}
	return FormatCountdown(Remaining(b, now))
}

// Sort returns a copy of bunkers with active ones first, then by ascending
// timestamp. Equal keys keep their original order.
func Sort(bunkers []models.Bunker) []models.Bunker {
	out := append([]models.Bunker(nil), bunkers...)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// Less reports whether a is listed before b: active first, then by
// ascending timestamp.
func Less(a, b models.Bunker) bool {
	if a.IsActive != b.IsActive {
		return a.IsActive
	}
	return a.Timestamp < b.Timestamp
}
