package projection

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mcdev12/playoffs/go/internal/clock"
	"github.com/mcdev12/playoffs/go/internal/models"
)

// FormatClock renders d as a signed MM:SS, truncating partial seconds.
func FormatClock(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%s%02d:%02d", sign, total/60, total%60)
}

// effectiveAt is the effective time of a recorded instant. Unstarted
// tournaments read as zero.
func effectiveAt(t *models.Tournament, at time.Time) time.Duration {
	eff, ok := clock.Effective(t, at)
	if !ok {
		return 0
	}
	return eff
}

// ceilSeconds rounds toward positive infinity, keeping the sign.
func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func markers(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" X", n)
}

func puzzleText(start, end string, incorrect int, tag string) string {
	text := start + " ~ " + end + markers(incorrect)
	if tag != "" {
		text += " [" + tag + "]"
	}
	return text
}

func nameAt(names []string, i int, fallback string) string {
	if i >= 0 && i < len(names) && names[i] != "" {
		return names[i]
	}
	return fallback
}
