// Package notifier sends sequence results to a Telegram chat.
// It is outbound-only; the bot never reads updates.
package notifier

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"stakebot/internal/sequence"
	logx "stakebot/pkg/logx"
)

type Config struct {
	Token  string
	ChatID int64

	// RatePerSec bounds outbound messages. Zero means 1/s.
	RatePerSec int
}

type Service struct {
	bot     *tele.Bot
	chatID  int64
	limiter *rate.Limiter
	log     logx.Logger
}

// New creates the notifier. It returns (nil, nil) when no token is
// configured; a nil *Service is safe to call.
func New(cfg Config, log logx.Logger) (*Service, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, nil
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram.chat_id is required when a token is set")
	}

	bot, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	return &Service{
		bot:     bot,
		chatID:  cfg.ChatID,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}, nil
}

// NotifyResult reports one finished sequence. Failures are logged, never
// fatal: a missed notification must not affect the run's outcome handling.
func (s *Service) NotifyResult(ctx context.Context, asset, direction string, res sequence.Result) {
	if s == nil {
		return
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}

	text := FormatResult(asset, direction, res)
	_, err := s.bot.Send(tele.ChatID(s.chatID), text, &tele.SendOptions{DisableWebPagePreview: true})
	if err != nil {
		s.log.Warn("notification send failed", logx.Int64("chat_id", s.chatID), logx.Err(err))
		return
	}
	s.log.Debug("notification sent", logx.Int64("chat_id", s.chatID))
}

// FormatResult renders one finished sequence as a compact plain-text
// message.
func FormatResult(asset, direction string, res sequence.Result) string {
	prefix := "ℹ️"
	switch {
	case res.Final == sequence.FinalLoss:
		prefix = "🚨"
	case res.Final == sequence.FinalAborted:
		prefix = "⚠️"
	case res.Final == sequence.FinalWin:
		prefix = "✅"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s: %s (%s)\n", prefix, asset, direction, res.Final, res.Reason)
	fmt.Fprintf(&b, "levels attempted: %d\n", res.LevelsAttempted)
	for _, a := range res.Attempts {
		fmt.Fprintf(&b, "L%d stake=%.2f at %s: %s\n",
			a.Level, a.Stake, a.SubmittedAt.Format("15:04:05"), a.Outcome)
	}
	if res.Err != nil {
		fmt.Fprintf(&b, "error: %v\n", res.Err)
	}
	return strings.TrimRight(b.String(), "\n")
}
