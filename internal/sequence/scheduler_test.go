package sequence

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Asset:      "EURUSD",
		BaseStake:  1,
		Multiplier: 2,
		MaxLevels:  3,
		EntryTime:  TimeOfDay{Hour: 2, Minute: 2},
		ExpiryTimes: []TimeOfDay{
			{Hour: 2, Minute: 3},
			{Hour: 2, Minute: 4},
			{Hour: 2, Minute: 5},
		},
		Location:       time.UTC,
		PollInterval:   500 * time.Millisecond,
		OutcomeTimeout: 70 * time.Second,
	}
}

func TestBuildPlanShape(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	now := time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC)

	plan, err := BuildPlan(cfg, now)
	if err != nil {
		t.Fatalf("BuildPlan error: %v", err)
	}
	if len(plan) != cfg.MaxLevels {
		t.Fatalf("plan length = %d, want %d", len(plan), cfg.MaxLevels)
	}

	wantMult := []float64{1, 2, 4}
	for i, e := range plan {
		if e.Level != i+1 {
			t.Fatalf("plan[%d].Level = %d, want %d", i, e.Level, i+1)
		}
		if e.StakeMultiplier != wantMult[i] {
			t.Fatalf("level %d multiplier = %v, want %v", e.Level, e.StakeMultiplier, wantMult[i])
		}
		if !e.ExpiryAt.After(plan[0].EntryAt) {
			t.Fatalf("level %d expiry %v not after entry %v", e.Level, e.ExpiryAt, plan[0].EntryAt)
		}
	}

	wantEntry := time.Date(2025, 6, 1, 2, 2, 0, 0, time.UTC)
	if !plan[0].EntryAt.Equal(wantEntry) {
		t.Fatalf("entry = %v, want %v", plan[0].EntryAt, wantEntry)
	}
	// Levels 2..N project their entry from the previous level's expiry.
	for i := 1; i < len(plan); i++ {
		if !plan[i].EntryAt.Equal(plan[i-1].ExpiryAt) {
			t.Fatalf("plan[%d].EntryAt = %v, want previous expiry %v", i, plan[i].EntryAt, plan[i-1].ExpiryAt)
		}
	}
}

func TestBuildPlanEntryRollsToTomorrow(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	// Entry time-of-day already elapsed today.
	now := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)

	plan, err := BuildPlan(cfg, now)
	if err != nil {
		t.Fatalf("BuildPlan error: %v", err)
	}

	naive := time.Date(2025, 6, 1, 2, 2, 0, 0, time.UTC)
	if got, want := plan[0].EntryAt, naive.Add(24*time.Hour); !got.Equal(want) {
		t.Fatalf("entry = %v, want %v (naive + 24h)", got, want)
	}
}

func TestBuildPlanEntryExactlyNowRolls(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	now := time.Date(2025, 6, 1, 2, 2, 0, 0, time.UTC)

	plan, err := BuildPlan(cfg, now)
	if err != nil {
		t.Fatalf("BuildPlan error: %v", err)
	}
	if got, want := plan[0].EntryAt, now.AddDate(0, 0, 1); !got.Equal(want) {
		t.Fatalf("entry at-or-before now must roll: got %v, want %v", got, want)
	}
}

func TestBuildPlanExpiryAcrossMidnight(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.EntryTime = TimeOfDay{Hour: 23, Minute: 58}
	cfg.ExpiryTimes = []TimeOfDay{
		{Hour: 23, Minute: 59},
		{Hour: 0, Minute: 0},
		{Hour: 0, Minute: 1},
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	plan, err := BuildPlan(cfg, now)
	if err != nil {
		t.Fatalf("BuildPlan error: %v", err)
	}

	entry := plan[0].EntryAt
	if entry.Day() != 1 {
		t.Fatalf("entry rolled unexpectedly: %v", entry)
	}
	// 00:00 and 00:01 are before the 23:58 entry on the entry date, so they
	// resolve to June 2nd.
	for _, i := range []int{1, 2} {
		if plan[i].ExpiryAt.Day() != 2 {
			t.Fatalf("level %d expiry should cross midnight: %v", plan[i].Level, plan[i].ExpiryAt)
		}
		if !plan[i].ExpiryAt.After(entry) {
			t.Fatalf("level %d expiry %v not after entry %v", plan[i].Level, plan[i].ExpiryAt, entry)
		}
	}
}

func TestBuildPlanTimezone(t *testing.T) {
	t.Parallel()
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	cfg := testConfig()
	cfg.Location = loc

	// 01:30 UTC on June 1st is 02:30 BST: the 02:02 local entry has already
	// passed and must roll to the next day.
	now := time.Date(2025, 6, 1, 1, 30, 0, 0, time.UTC)
	plan, err := BuildPlan(cfg, now)
	if err != nil {
		t.Fatalf("BuildPlan error: %v", err)
	}
	want := time.Date(2025, 6, 2, 2, 2, 0, 0, loc)
	if !plan[0].EntryAt.Equal(want) {
		t.Fatalf("entry = %v, want %v", plan[0].EntryAt, want)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty asset", func(c *Config) { c.Asset = "" }},
		{"zero stake", func(c *Config) { c.BaseStake = 0 }},
		{"negative multiplier", func(c *Config) { c.Multiplier = -1 }},
		{"zero levels", func(c *Config) { c.MaxLevels = 0 }},
		{"expiry count mismatch", func(c *Config) { c.ExpiryTimes = c.ExpiryTimes[:2] }},
		{"nil location", func(c *Config) { c.Location = nil }},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"zero timeout", func(c *Config) { c.OutcomeTimeout = 0 }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	if err := testConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()
	got, err := ParseTimeOfDay("23:15")
	if err != nil {
		t.Fatalf("ParseTimeOfDay error: %v", err)
	}
	if got.Hour != 23 || got.Minute != 15 {
		t.Fatalf("unexpected result: %v", got)
	}

	for _, bad := range []string{"24:00", "12:60", "xx:00", "12", "12:00:00"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestValidatePlanRejectsExpiryAtEntry(t *testing.T) {
	t.Parallel()
	entry := time.Date(2025, 6, 1, 2, 2, 0, 0, time.UTC)
	plan := []ScheduleEntry{
		{Level: 1, EntryAt: entry, ExpiryAt: entry, StakeMultiplier: 1},
	}
	if err := ValidatePlan(plan); err == nil {
		t.Fatal("expected error for expiry at entry")
	}
}
