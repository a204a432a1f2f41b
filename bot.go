package dashboard

import (
	"context"

	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"
)

// runner is what Bot needs from a Dashboard.
// *Dashboard satisfies this interface.
type runner interface {
	Run(ctx context.Context) error
}

// Bot is a sarah.Bot that serves the dashboard for as long as the wrapped bot runs.
type Bot struct {
	sarah.Bot
	dashboard runner
}

var _ sarah.Bot = (*Bot)(nil)

// NewBot wraps bot so that the dashboard starts and stops with it.
// When dashboard is nil, as when New refused the configuration, bot is returned as is.
func NewBot(bot sarah.Bot, dashboard *Dashboard) sarah.Bot {
	if dashboard == nil {
		return bot
	}
	return &Bot{
		Bot:       bot,
		dashboard: dashboard,
	}
}

// Run starts the dashboard and then runs the wrapped bot until it returns.
// The dashboard is stopped and awaited before Run returns. Its failures are
// logged but never passed to notifyErr: the bot keeps running without it.
func (b *Bot) Run(ctx context.Context, enqueueInput func(sarah.Input) error, notifyErr func(error)) {
	dashboardCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := b.dashboard.Run(dashboardCtx); err != nil {
			logger.Errorf("Dashboard stopped: %+v", err)
		}
	}()

	b.Bot.Run(ctx, enqueueInput, notifyErr)

	cancel()
	<-done
}
