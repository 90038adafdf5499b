package notify

import "github.com/crystaldolphin/wadash/internal/config/channel"

// Senders builds a Sender for every enabled notification channel.
func Senders(cfg channel.ChannelsConfig) []Sender {
	var out []Sender
	if cfg.Slack.Enabled {
		out = append(out, NewSlackSender(cfg.Slack))
	}
	if cfg.Telegram.Enabled {
		out = append(out, NewTelegramSender(cfg.Telegram))
	}
	return out
}
