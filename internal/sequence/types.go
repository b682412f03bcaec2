package sequence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"stakebot/internal/venue"
)

// TimeOfDay is a wall-clock HH:MM target in the sequence timezone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On resolves the time-of-day against the date of ref, in ref's location.
func (t TimeOfDay) On(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour, t.Minute, 0, 0, ref.Location())
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// Config is the immutable input of one sequence run.
type Config struct {
	Asset      string
	Direction  venue.Direction
	BaseStake  float64
	Multiplier float64
	MaxLevels  int

	EntryTime   TimeOfDay
	ExpiryTimes []TimeOfDay // one per level; len == MaxLevels
	Location    *time.Location

	PollInterval   time.Duration
	OutcomeTimeout time.Duration

	// ActionDuration is the fixed duration submitted with every action.
	// Zero means one minute.
	ActionDuration time.Duration
}

func (c Config) actionDuration() time.Duration {
	if c.ActionDuration > 0 {
		return c.ActionDuration
	}
	return time.Minute
}

// Validate checks the configuration before any action is submitted.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Asset) == "" {
		return fmt.Errorf("sequence.asset: required")
	}
	if c.BaseStake <= 0 {
		return fmt.Errorf("sequence.base_stake: must be > 0, got %v", c.BaseStake)
	}
	if c.Multiplier <= 0 {
		return fmt.Errorf("sequence.escalation_multiplier: must be > 0, got %v", c.Multiplier)
	}
	if c.MaxLevels < 1 {
		return fmt.Errorf("sequence.max_levels: must be >= 1, got %d", c.MaxLevels)
	}
	if len(c.ExpiryTimes) != c.MaxLevels {
		return fmt.Errorf("sequence.expiry_times: got %d entries, need exactly %d (one per level)",
			len(c.ExpiryTimes), c.MaxLevels)
	}
	if c.Location == nil {
		return fmt.Errorf("sequence.timezone: required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("sequence.outcome_poll_interval: must be > 0")
	}
	if c.OutcomeTimeout <= 0 {
		return fmt.Errorf("sequence.outcome_timeout: must be > 0")
	}
	return nil
}

// ScheduleEntry is one level of the computed plan.
//
// EntryAt for level 1 is the actual submission instant. For levels 2..N it
// is a projection only: execution chains each escalation to the previous
// level's ExpiryAt, not to the plan (see Controller).
type ScheduleEntry struct {
	Level           int
	EntryAt         time.Time
	ExpiryAt        time.Time
	StakeMultiplier float64
}

// AttemptRecord is one submitted (or attempted) action. Owned by the
// Controller for the duration of a run; never reused across levels.
type AttemptRecord struct {
	Level       int
	Stake       float64
	ActionID    venue.ActionID
	SubmittedAt time.Time
	Outcome     venue.Outcome
}

// TerminalReason says why a sequence ended.
type TerminalReason int

const (
	ReasonUnknown TerminalReason = iota
	ReasonWin
	ReasonMaxLevelsReached
	ReasonSubmissionFailed
	ReasonOutcomeTimeout
	ReasonCancelled
)

func (r TerminalReason) String() string {
	switch r {
	case ReasonWin:
		return "WIN"
	case ReasonMaxLevelsReached:
		return "MAX_LEVELS_REACHED"
	case ReasonSubmissionFailed:
		return "SUBMISSION_FAILED"
	case ReasonOutcomeTimeout:
		return "OUTCOME_TIMEOUT"
	case ReasonCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// FinalOutcome is the sequence-level result.
type FinalOutcome int

const (
	FinalAborted FinalOutcome = iota
	FinalWin
	FinalLoss
)

func (f FinalOutcome) String() string {
	switch f {
	case FinalWin:
		return "WIN"
	case FinalLoss:
		return "LOSS"
	default:
		return "ABORTED"
	}
}

// Result is the terminal summary of one sequence run.
type Result struct {
	LevelsAttempted int
	Reason          TerminalReason
	Final           FinalOutcome

	Attempts []AttemptRecord

	// Err carries the failure for SUBMISSION_FAILED; nil otherwise.
	Err error
}
