package internal

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// CertAnnotation returns a parenthetical annotation like " (2 expired, 1 expiring)"
// for non-zero counts, or an empty string if both are zero.
func CertAnnotation(expired, expiring int) string {
	var parts []string
	if expired > 0 {
		parts = append(parts, fmt.Sprintf("%d expired", expired))
	}
	if expiring > 0 {
		parts = append(parts, fmt.Sprintf("%d expiring", expiring))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// daysUntil returns the number of days from now until t, rounded down.
func daysUntil(t, now time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}
