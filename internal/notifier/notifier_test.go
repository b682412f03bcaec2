package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"stakebot/internal/sequence"
	"stakebot/internal/venue"
	logx "stakebot/pkg/logx"
)

func TestNewDisabledWithoutToken(t *testing.T) {
	t.Parallel()
	s, err := New(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if s != nil {
		t.Fatal("empty token must disable the notifier")
	}
	// nil service is callable
	s.NotifyResult(context.Background(), "EURUSD", "UP", sequence.Result{})
}

func TestNewRequiresChatID(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Token: "123:abc"}, logx.Nop()); err == nil {
		t.Fatal("expected error for token without chat_id")
	}
}

func TestFormatResult(t *testing.T) {
	t.Parallel()
	at := time.Date(2025, 6, 1, 2, 3, 0, 0, time.UTC)
	res := sequence.Result{
		LevelsAttempted: 2,
		Reason:          sequence.ReasonMaxLevelsReached,
		Final:           sequence.FinalLoss,
		Attempts: []sequence.AttemptRecord{
			{Level: 1, Stake: 1, SubmittedAt: at, Outcome: venue.OutcomeLoss},
			{Level: 2, Stake: 2, SubmittedAt: at.Add(time.Minute), Outcome: venue.OutcomeLoss},
		},
	}

	msg := FormatResult("EURUSD", "UP", res)
	for _, want := range []string{
		"EURUSD UP: LOSS (MAX_LEVELS_REACHED)",
		"levels attempted: 2",
		"L1 stake=1.00 at 02:03:00: LOSS",
		"L2 stake=2.00 at 02:04:00: LOSS",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}

	res.Err = errors.New("boom")
	if !strings.Contains(FormatResult("EURUSD", "UP", res), "error: boom") {
		t.Fatal("error line missing")
	}
}
