package review

import (
	"fmt"
	"time"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

// Unused reports whether activity falls outside the staleness threshold,
// measured against the run timestamp. A nil lastActivity means the identity
// never authenticated and always counts as unused.
func Unused(lastActivity *time.Time, threshold time.Duration, now time.Time) bool {
	if lastActivity == nil {
		return true
	}
	return now.Sub(*lastActivity) > threshold
}

// IdleDays returns whole days since the last recorded activity, or -1 when
// the identity never authenticated.
func IdleDays(lastActivity *time.Time, now time.Time) int {
	if lastActivity == nil {
		return -1
	}
	days := int(now.Sub(*lastActivity).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func idleEvidence(snap domain.IdentitySnapshot, thresholdDays int, now time.Time) string {
	if snap.LastActivity == nil {
		return fmt.Sprintf("%s %q has no recorded activity", snap.Type, snap.Name)
	}
	return fmt.Sprintf("%s %q last active %d days ago, threshold is %d days",
		snap.Type, snap.Name, IdleDays(snap.LastActivity, now), thresholdDays)
}
