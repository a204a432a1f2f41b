package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"
)

// DISCORD is the sarah.BotType of this example's bot.
const DISCORD sarah.BotType = "discord"

// channelID represents a Discord channel as sarah.OutputDestination.
type channelID string

// adapter is a minimal sarah.Adapter that relays Discord messages.
type adapter struct {
	session *discordgo.Session
}

var _ sarah.Adapter = (*adapter)(nil)

func (a *adapter) BotType() sarah.BotType {
	return DISCORD
}

// Run opens the gateway connection and blocks until ctx is canceled.
func (a *adapter) Run(ctx context.Context, enqueueInput func(sarah.Input) error, notifyErr func(error)) {
	a.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || (s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID) {
			return
		}

		in := &input{
			senderKey: fmt.Sprintf("%s_%s", m.ChannelID, m.Author.ID),
			text:      m.Content,
			sentAt:    m.Timestamp,
			channelID: channelID(m.ChannelID),
		}
		if err := enqueueInput(in); err != nil {
			logger.Errorf("Failed to enqueue input: %+v", err)
		}
	})

	if err := a.session.Open(); err != nil {
		notifyErr(sarah.NewBotNonContinuableError(fmt.Sprintf("failed to open Discord session: %s", err.Error())))
		return
	}

	<-ctx.Done()

	if err := a.session.Close(); err != nil {
		logger.Errorf("Failed to close Discord session: %+v", err)
	}
}

func (a *adapter) SendMessage(_ context.Context, output sarah.Output) {
	destination, ok := output.Destination().(channelID)
	if !ok {
		logger.Errorf("Destination is not instance of channelID. %#v.", output.Destination())
		return
	}

	content, ok := output.Content().(string)
	if !ok {
		logger.Warnf("Unexpected output %#v", output)
		return
	}

	if _, err := a.session.ChannelMessageSend(string(destination), content); err != nil {
		logger.Errorf("Failed to send message to %s: %+v", destination, err)
	}
}

// input is a sarah.Input for a received Discord message.
type input struct {
	senderKey string
	text      string
	sentAt    time.Time
	channelID channelID
}

var _ sarah.Input = (*input)(nil)

func (i *input) SenderKey() string {
	return i.senderKey
}

func (i *input) Message() string {
	return i.text
}

func (i *input) SentAt() time.Time {
	return i.sentAt
}

func (i *input) ReplyTo() sarah.OutputDestination {
	return i.channelID
}
