// Package notify pushes emitted signals to Telegram.
package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Fusion/models"
)

// Notifier sends signal summaries to one chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// New creates a notifier for the given bot token and chat.
func New(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &Notifier{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "notify").Logger(),
	}, nil
}

// SendSignal pushes one fused signal, with sizing when available.
func (n *Notifier) SendSignal(signal *models.MarketSignal, sizing *models.PositionSizing) error {
	msg := tgbotapi.NewMessage(n.chatID, formatSignal(signal, sizing))
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error().Err(err).Str("symbol", signal.Symbol).Msg("telegram send failed")
		return fmt.Errorf("sending signal: %w", err)
	}
	n.logger.Debug().Str("symbol", signal.Symbol).Msg("signal sent")
	return nil
}

func formatSignal(signal *models.MarketSignal, sizing *models.PositionSizing) string {
	var b strings.Builder

	emoji := "⚪"
	switch signal.Overall.Direction {
	case models.DirectionBuy:
		emoji = "🟢"
	case models.DirectionSell:
		emoji = "🔴"
	}

	fmt.Fprintf(&b, "%s <b>%s</b> — %s\n", emoji, signal.Symbol, strings.ToUpper(string(signal.Overall.Direction)))
	fmt.Fprintf(&b, "Confidence: %.0f%% | Strength: %d/10 | Risk: %s\n",
		signal.Overall.Confidence*100, signal.Overall.Strength, signal.Overall.RiskLevel)

	b.WriteString("\n<b>Timeframes</b>\n")
	signal.PerTimeframe.ForEach(func(tf models.Timeframe, sig *models.TimeframeSignal) {
		if sig == nil {
			fmt.Fprintf(&b, "%s: n/a\n", tf)
			return
		}
		fmt.Fprintf(&b, "%s: %s (%.0f%%)\n", tf, sig.Direction, sig.Confidence*100)
	})

	if sizing != nil {
		b.WriteString("\n<b>Position</b>\n")
		fmt.Fprintf(&b, "Entry: %.5f\n", sizing.EntryPrice)
		fmt.Fprintf(&b, "Stop: %.5f | Target: %.5f (RR %.2f)\n",
			sizing.StopLoss, sizing.TakeProfit, sizing.RiskRewardRatio)
		fmt.Fprintf(&b, "Size: %.2f | Risk: %.2f\n", sizing.PositionSize, sizing.RiskPerTrade)
	}

	fmt.Fprintf(&b, "\n<i>%s</i>", signal.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	return b.String()
}
