package sequence

import (
	"context"
	"errors"
	"time"

	"stakebot/internal/venue"
	logx "stakebot/pkg/logx"
)

// Controller drives one escalation sequence to completion.
//
// It submits the entry action at the planned instant, polls for the
// outcome, and on a loss escalates the stake and re-submits at the instant
// the lost attempt expired. Terminal on a win, on a loss at the last level,
// on a submission failure, on an outcome timeout, or on cancellation.
//
// A Controller runs a single sequence on a single goroutine; it holds no
// shared mutable state.
type Controller struct {
	cfg       Config
	submitter venue.Submitter
	poller    venue.OutcomePoller
	clock     Clock
	log       logx.Logger
}

func NewController(cfg Config, submitter venue.Submitter, poller venue.OutcomePoller, clock Clock, log logx.Logger) *Controller {
	if clock == nil {
		clock = SystemClock()
	}
	return &Controller{
		cfg:       cfg,
		submitter: submitter,
		poller:    poller,
		clock:     clock,
		log:       log,
	}
}

// Run executes the sequence and returns its terminal summary.
//
// An error is returned only for configuration/schedule problems, before any
// action is submitted. Every runtime failure path terminates through the
// Result's Reason instead.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	plan, err := BuildPlan(c.cfg, c.clock.Now())
	if err != nil {
		return Result{}, err
	}
	if err := ValidatePlan(plan); err != nil {
		return Result{}, err
	}

	for _, e := range plan {
		c.log.Debug("planned level",
			logx.Int("level", e.Level),
			logx.Time("entry_at", e.EntryAt),
			logx.Time("expiry_at", e.ExpiryAt),
			logx.Float64("stake_multiplier", e.StakeMultiplier),
		)
	}

	attempts := make([]AttemptRecord, 0, c.cfg.MaxLevels)
	result := func(reason TerminalReason, final FinalOutcome, err error) Result {
		return Result{
			LevelsAttempted: len(attempts),
			Reason:          reason,
			Final:           final,
			Attempts:        attempts,
			Err:             err,
		}
	}

	// Level 1 fires at the planned entry; each escalation fires at the
	// expiry instant of the loss just recorded.
	dueAt := plan[0].EntryAt

	for level := 1; level <= c.cfg.MaxLevels; level++ {
		entry := plan[level-1]
		stake := c.cfg.BaseStake * entry.StakeMultiplier

		if err := c.waitUntil(ctx, dueAt); err != nil {
			c.log.Warn("sequence cancelled while waiting for entry",
				logx.Int("level", level), logx.Time("due_at", dueAt))
			return result(ReasonCancelled, FinalAborted, nil), nil
		}

		c.log.Info("submitting action",
			logx.Int("level", level),
			logx.String("asset", c.cfg.Asset),
			logx.String("direction", c.cfg.Direction.String()),
			logx.Float64("stake", stake),
		)
		rec := AttemptRecord{Level: level, Stake: stake, SubmittedAt: c.clock.Now()}
		id, err := c.submitter.Submit(ctx, venue.SubmitRequest{
			Asset:     c.cfg.Asset,
			Direction: c.cfg.Direction,
			Stake:     stake,
			Duration:  c.cfg.actionDuration(),
		})
		if err != nil {
			attempts = append(attempts, rec)
			if ctx.Err() != nil {
				return result(ReasonCancelled, FinalAborted, nil), nil
			}
			c.log.Error("submission failed", logx.Int("level", level), logx.Err(err))
			return result(ReasonSubmissionFailed, FinalAborted, err), nil
		}
		rec.ActionID = id

		outcome, aborted := c.awaitOutcome(ctx, id)
		rec.Outcome = outcome
		attempts = append(attempts, rec)

		switch {
		case aborted == ReasonCancelled:
			return result(ReasonCancelled, FinalAborted, nil), nil
		case aborted == ReasonOutcomeTimeout:
			c.log.Error("no outcome within timeout window",
				logx.Int("level", level),
				logx.String("action_id", string(id)),
				logx.Duration("timeout", c.cfg.OutcomeTimeout))
			return result(ReasonOutcomeTimeout, FinalAborted, nil), nil
		case outcome == venue.OutcomeWin:
			c.log.Info("attempt won", logx.Int("level", level), logx.Float64("stake", stake))
			return result(ReasonWin, FinalWin, nil), nil
		case outcome == venue.OutcomeLoss && level == c.cfg.MaxLevels:
			c.log.Warn("attempt lost at final level", logx.Int("level", level))
			return result(ReasonMaxLevelsReached, FinalLoss, nil), nil
		default: // loss, more levels remain
			dueAt = entry.ExpiryAt
			c.log.Info("attempt lost, escalating",
				logx.Int("level", level),
				logx.Int("next_level", level+1),
				logx.Time("next_entry_at", dueAt))
		}
	}

	// Unreachable: every branch above is terminal or advances the loop.
	return result(ReasonUnknown, FinalAborted, errors.New("sequence fell through")), nil
}

// waitUntil suspends until the given instant, honoring cancellation.
func (c *Controller) waitUntil(ctx context.Context, at time.Time) error {
	d := at.Sub(c.clock.Now())
	if d > 0 {
		c.log.Debug("waiting for entry", logx.Time("due_at", at), logx.Duration("wait", d))
	}
	return c.clock.Sleep(ctx, d)
}

// awaitOutcome polls the venue until the action resolves or the timeout
// window elapses. Transient poll errors are absorbed; they count against
// the window but never terminate by themselves.
func (c *Controller) awaitOutcome(ctx context.Context, id venue.ActionID) (venue.Outcome, TerminalReason) {
	deadline := c.clock.Now().Add(c.cfg.OutcomeTimeout)
	for {
		out, err := c.poller.Poll(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return venue.OutcomeUnknown, ReasonCancelled
			}
			c.log.Debug("poll failed, will retry", logx.String("action_id", string(id)), logx.Err(err))
		} else if out.Resolved() {
			return out, ReasonUnknown
		}

		if !c.clock.Now().Add(c.cfg.PollInterval).Before(deadline) {
			return venue.OutcomeUnknown, ReasonOutcomeTimeout
		}
		if err := c.clock.Sleep(ctx, c.cfg.PollInterval); err != nil {
			return venue.OutcomeUnknown, ReasonCancelled
		}
	}
}
