package app

import (
	"context"
	"fmt"
	"sync/atomic"

	sysd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"stakebot/internal/config"
	"stakebot/internal/sequence"
	logx "stakebot/pkg/logx"
)

// RunDaemon keeps the bot alive and triggers one sequence per day at the
// configured entry time. The config file is watched; edits apply to the
// next run, never to one already in flight.
func (a *App) RunDaemon(ctx context.Context) error {
	go func() { _ = a.cfgm.Watch(ctx) }()
	updates := a.cfgm.Subscribe(1)
	defer a.cfgm.Unsubscribe(updates)

	var running atomic.Bool
	job := func() {
		// Overlap guard: a sequence that somehow outlives a full day must
		// not be doubled up.
		if !running.CompareAndSwap(false, true) {
			a.log.Warn("previous sequence still running, skipping trigger")
			return
		}
		defer running.Store(false)

		if _, err := a.RunOnce(ctx); err != nil {
			a.log.Error("sequence run failed", logx.Err(err))
		}
	}

	cr, spec, err := a.startCron(a.cfgm.Get(), job)
	if err != nil {
		return err
	}
	a.log.Info("daemon started", logx.String("trigger", spec))

	if sent, err := sysd.SdNotify(false, sysd.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("systemd notified ready")
	}
	defer func() { _, _ = sysd.SdNotify(false, sysd.SdNotifyStopping) }()

	for {
		select {
		case <-ctx.Done():
			<-cr.Stop().Done()
			a.log.Info("daemon stopped")
			return nil
		case cfg := <-updates:
			if cfg == nil {
				continue
			}
			a.logs.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})

			// Re-register the trigger; entry time or timezone may have moved.
			<-cr.Stop().Done()
			next, nextSpec, err := a.startCron(cfg, job)
			if err != nil {
				// Validator rejects bad configs before publish; a failure
				// here means the zone database changed under us. Keep the
				// daemon alive with the old trigger.
				a.log.Error("trigger re-registration failed", logx.Err(err))
				cr.Start()
				continue
			}
			cr = next
			a.log.Info("trigger updated", logx.String("trigger", nextSpec))
		}
	}
}

func (a *App) startCron(cfg *config.Config, job func()) (*cron.Cron, string, error) {
	seqCfg, err := MapSequenceConfig(cfg.Sequence)
	if err != nil {
		return nil, "", err
	}

	spec := triggerSpec(seqCfg.EntryTime)
	cr := cron.New(cron.WithLocation(seqCfg.Location))
	if _, err := cr.AddFunc(spec, job); err != nil {
		return nil, "", err
	}
	cr.Start()
	return cr, spec, nil
}

// triggerSpec fires one minute before the entry time-of-day. The run
// resolves its entry to the nearest future occurrence, so triggering ahead
// of it lands the submission on today's instant instead of rolling a full
// day forward.
func triggerSpec(t sequence.TimeOfDay) string {
	h, m := t.Hour, t.Minute-1
	if m < 0 {
		m = 59
		h--
		if h < 0 {
			h = 23
		}
	}
	return fmt.Sprintf("%d %d * * *", m, h)
}
