package app

import (
	"context"
	"fmt"
	"io"
	"time"
)

// WriteHistory lists the most recent journaled runs.
func (a *App) WriteHistory(ctx context.Context, w io.Writer, limit int) error {
	if a.jour == nil {
		return fmt.Errorf("journal is not enabled")
	}

	runs, err := a.jour.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}

	for _, r := range runs {
		fmt.Fprintf(w, "#%d %s %s %s: %s (%s), %d level(s)\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Asset, r.Direction,
			r.FinalOutcome, r.TerminalReason, r.LevelsAttempted)

		attempts, err := a.jour.Attempts(ctx, r.ID)
		if err != nil {
			return err
		}
		for _, at := range attempts {
			fmt.Fprintf(w, "  L%d stake=%.2f at %s: %s\n",
				at.Level, at.Stake, at.SubmittedAt.Format("15:04:05"), at.Outcome)
		}
		if r.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", r.Error)
		}
	}
	return nil
}
