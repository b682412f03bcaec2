package venue

import "testing"

func TestParseDirection(t *testing.T) {
	t.Parallel()
	up, err := ParseDirection("UP")
	if err != nil || up != DirectionUp {
		t.Fatalf("ParseDirection(UP) = %v, %v", up, err)
	}
	down, err := ParseDirection("down")
	if err != nil || down != DirectionDown {
		t.Fatalf("ParseDirection(down) = %v, %v", down, err)
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Fatal("expected error for invalid direction")
	}
}

func TestOutcomeResolved(t *testing.T) {
	t.Parallel()
	tests := []struct {
		o    Outcome
		want bool
	}{
		{OutcomeUnknown, false},
		{OutcomePending, false},
		{OutcomeWin, true},
		{OutcomeLoss, true},
	}
	for _, tt := range tests {
		if got := tt.o.Resolved(); got != tt.want {
			t.Fatalf("%s.Resolved() = %v, want %v", tt.o, got, tt.want)
		}
	}
}
