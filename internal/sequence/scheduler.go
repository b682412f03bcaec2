package sequence

import (
	"fmt"
	"math"
	"time"
)

// BuildPlan computes the schedule for one run: the entry instant for level 1
// and, per level, the expiry instant and stake multiplier.
//
// Resolution rules:
//   - The entry time-of-day resolves to the nearest future instant: if
//     today's occurrence is at or before now, it rolls to tomorrow.
//   - Each expiry time-of-day resolves against the entry date. If the
//     result is at or before the entry instant it rolls forward one day, so
//     expiries land after entry even across midnight.
//   - Level i multiplier = multiplier^(i-1).
//
// Levels 2..N inherit the previous level's expiry as their projected entry.
// The projection is informational; the Controller chains escalation timing
// off the previous attempt's expiry directly.
func BuildPlan(cfg Config, now time.Time) ([]ScheduleEntry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	local := now.In(cfg.Location)
	entry := cfg.EntryTime.On(local)
	if !entry.After(local) {
		entry = cfg.EntryTime.On(local.AddDate(0, 0, 1))
	}

	plan := make([]ScheduleEntry, 0, cfg.MaxLevels)
	prevExpiry := entry
	for i := 0; i < cfg.MaxLevels; i++ {
		expiry := cfg.ExpiryTimes[i].On(entry)
		if !expiry.After(entry) {
			expiry = cfg.ExpiryTimes[i].On(entry.AddDate(0, 0, 1))
		}

		entryAt := entry
		if i > 0 {
			entryAt = prevExpiry
		}
		plan = append(plan, ScheduleEntry{
			Level:           i + 1,
			EntryAt:         entryAt,
			ExpiryAt:        expiry,
			StakeMultiplier: math.Pow(cfg.Multiplier, float64(i)),
		})
		prevExpiry = expiry
	}

	return plan, nil
}

// ValidatePlan cross-checks a computed plan: every expiry must fall after
// the entry instant. Non-monotonic expiry lists are allowed (each level is
// resolved independently), but an expiry at or before entry means the
// config cannot describe back-to-back attempts.
func ValidatePlan(plan []ScheduleEntry) error {
	if len(plan) == 0 {
		return fmt.Errorf("empty plan")
	}
	entry := plan[0].EntryAt
	for _, e := range plan {
		if !e.ExpiryAt.After(entry) {
			return fmt.Errorf("level %d expiry %s is not after entry %s",
				e.Level, e.ExpiryAt.Format(time.RFC3339), entry.Format(time.RFC3339))
		}
	}
	return nil
}
