package notify

import (
	"context"
	"fmt"

	slackgo "github.com/slack-go/slack"

	"github.com/crystaldolphin/wadash/internal/config/channel"
)

// SlackSender posts notifications to one Slack channel.
type SlackSender struct {
	client  *slackgo.Client
	channel string
}

func NewSlackSender(cfg channel.SlackConfig, opts ...slackgo.Option) *SlackSender {
	return &SlackSender{
		client:  slackgo.New(cfg.BotToken, opts...),
		channel: cfg.Channel,
	}
}

func (s *SlackSender) Name() string { return "slack" }

func (s *SlackSender) Send(ctx context.Context, text string) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel, slackgo.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}
