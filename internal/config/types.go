package config

type Config struct {
	Venue    VenueConfig     `json:"venue"`
	Sequence SequenceConfig  `json:"sequence"`
	Journal  *JournalConfig  `json:"journal,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Logging  LoggingConfig   `json:"logging"`
	Daemon   DaemonConfig    `json:"daemon,omitempty"`
}

// VenueConfig configures the websocket venue client.
type VenueConfig struct {
	URL   string `json:"url"`
	AppID string `json:"app_id,omitempty"`

	SubmitRatePerSec int `json:"submit_rate_per_sec,omitempty"`
}

// SequenceConfig is the file form of one escalation sequence.
//
// All durations are Go duration strings (e.g. "500ms", "70s").
type SequenceConfig struct {
	Asset                string   `json:"asset"`
	Direction            string   `json:"direction"` // "UP" | "DOWN"
	BaseStake            float64  `json:"base_stake"`
	EscalationMultiplier float64  `json:"escalation_multiplier"`
	MaxLevels            int      `json:"max_levels"`
	EntryTime            string   `json:"entry_time"`   // "HH:MM"
	ExpiryTimes          []string `json:"expiry_times"` // one per level
	Timezone             string   `json:"timezone"`     // IANA TZ, e.g. "Europe/London"
	OutcomePollInterval  string   `json:"outcome_poll_interval,omitempty"`
	OutcomeTimeout       string   `json:"outcome_timeout,omitempty"`
}

// JournalConfig controls the optional run journal.
type JournalConfig struct {
	Enabled     bool   `json:"enabled"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// TelegramConfig controls outbound result notifications.
// Leave the token empty to disable.
type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// DaemonConfig controls daemon mode: instead of running the next sequence
// once and exiting, the bot stays up and triggers a sequence at the entry
// time every day.
type DaemonConfig struct {
	Enabled bool `json:"enabled"`
}
