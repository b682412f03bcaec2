package app

import (
	"context"
	"fmt"
	"time"

	"stakebot/internal/config"
	"stakebot/internal/journal"
	"stakebot/internal/notifier"
	"stakebot/internal/sequence"
	"stakebot/internal/venue"
	logx "stakebot/pkg/logx"
)

// App wires the configuration, venue client, controller, journal and
// notifier together.
type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	client *venue.Client
	jour   *journal.Journal
	notif  *notifier.Service
	clock  sequence.Clock
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	cfgm.SetLogger(logSvc.Logger().With(logx.String("comp", "config")))
	cfgm.SetValidator(func(c *config.Config) error {
		_, err := MapSequenceConfig(c.Sequence)
		return err
	})

	// Fail on a bad sequence config now, before anything talks to the venue.
	if _, err := MapSequenceConfig(cfg.Sequence); err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	var client *venue.Client
	if cfg.Venue.URL != "" {
		client, err = venue.NewClient(venue.Config{
			URL:              cfg.Venue.URL,
			AppID:            cfg.Venue.AppID,
			SubmitRatePerSec: cfg.Venue.SubmitRatePerSec,
		}, logSvc.Logger().With(logx.String("comp", "venue")))
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
	}

	var jour *journal.Journal
	if jc := cfg.Journal; jc != nil && jc.Enabled {
		busy, err := config.ParseDurationField("journal.busy_timeout", jc.BusyTimeout)
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		jour, err = journal.Open(journal.Config{Path: jc.Path, BusyTimeout: busy},
			logSvc.Logger().With(logx.String("comp", "journal")))
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		if jour != nil {
			log.Info("journal enabled", logx.String("path", jc.Path))
		}
	}

	var notif *notifier.Service
	if tc := cfg.Telegram; tc != nil {
		notif, err = notifier.New(notifier.Config{Token: tc.Token, ChatID: tc.ChatID},
			logSvc.Logger().With(logx.String("comp", "notifier")))
		if err != nil {
			_ = jour.Close()
			_ = logSvc.Close()
			return nil, err
		}
		if notif != nil {
			log.Info("telegram notifications enabled", logx.Int64("chat_id", tc.ChatID))
		}
	}

	return &App{
		cfgm:   cfgm,
		log:    log,
		logs:   logSvc,
		client: client,
		jour:   jour,
		notif:  notif,
		clock:  sequence.SystemClock(),
	}, nil
}

// DaemonEnabled reports whether the loaded config asks for daemon mode.
func (a *App) DaemonEnabled() bool {
	cfg := a.cfgm.Get()
	return cfg != nil && cfg.Daemon.Enabled
}

func (a *App) Close() error {
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.jour != nil {
		_ = a.jour.Close()
	}
	return a.logs.Close()
}

// MapSequenceConfig converts the file form into the controller's runtime
// config. Every malformed field is fatal before any action is submitted.
func MapSequenceConfig(sc config.SequenceConfig) (sequence.Config, error) {
	var out sequence.Config

	dir, err := venue.ParseDirection(sc.Direction)
	if err != nil {
		return out, fmt.Errorf("sequence.direction: %w", err)
	}

	entry, err := sequence.ParseTimeOfDay(sc.EntryTime)
	if err != nil {
		return out, fmt.Errorf("sequence.entry_time: %w", err)
	}

	expiries := make([]sequence.TimeOfDay, 0, len(sc.ExpiryTimes))
	for i, raw := range sc.ExpiryTimes {
		tod, err := sequence.ParseTimeOfDay(raw)
		if err != nil {
			return out, fmt.Errorf("sequence.expiry_times[%d]: %w", i, err)
		}
		expiries = append(expiries, tod)
	}

	if sc.Timezone == "" {
		return out, fmt.Errorf("sequence.timezone: required")
	}
	loc, err := time.LoadLocation(sc.Timezone)
	if err != nil {
		return out, fmt.Errorf("sequence.timezone: %w", err)
	}

	pollInterval, err := config.ParseDurationOrDefault("sequence.outcome_poll_interval", sc.OutcomePollInterval, 500*time.Millisecond)
	if err != nil {
		return out, err
	}
	timeout, err := config.ParseDurationOrDefault("sequence.outcome_timeout", sc.OutcomeTimeout, 70*time.Second)
	if err != nil {
		return out, err
	}

	out = sequence.Config{
		Asset:          sc.Asset,
		Direction:      dir,
		BaseStake:      sc.BaseStake,
		Multiplier:     sc.EscalationMultiplier,
		MaxLevels:      sc.MaxLevels,
		EntryTime:      entry,
		ExpiryTimes:    expiries,
		Location:       loc,
		PollInterval:   pollInterval,
		OutcomeTimeout: timeout,
	}
	if err := out.Validate(); err != nil {
		return sequence.Config{}, err
	}
	return out, nil
}

// RunOnce drives a single sequence to completion: connect, run, journal,
// notify.
func (a *App) RunOnce(ctx context.Context) (sequence.Result, error) {
	cfg := a.cfgm.Get()
	seqCfg, err := MapSequenceConfig(cfg.Sequence)
	if err != nil {
		return sequence.Result{}, err
	}

	if a.client == nil {
		return sequence.Result{}, fmt.Errorf("venue.url is required to run a sequence")
	}
	if err := a.client.Connect(ctx); err != nil {
		return sequence.Result{}, err
	}

	ctrl := sequence.NewController(seqCfg, a.client, a.client, a.clock,
		a.logs.Logger().With(logx.String("comp", "sequence")))

	started := a.clock.Now()
	res, err := ctrl.Run(ctx)
	if err != nil {
		return sequence.Result{}, err
	}
	finished := a.clock.Now()

	a.log.Info("sequence finished",
		logx.String("final", res.Final.String()),
		logx.String("reason", res.Reason.String()),
		logx.Int("levels_attempted", res.LevelsAttempted),
	)

	if a.jour != nil {
		if _, err := a.jour.RecordRun(context.WithoutCancel(ctx), started, finished,
			seqCfg.Asset, seqCfg.Direction.String(), res); err != nil {
			a.log.Warn("journal write failed", logx.Err(err))
		}
	}
	a.notif.NotifyResult(context.WithoutCancel(ctx), seqCfg.Asset, seqCfg.Direction.String(), res)

	return res, nil
}
