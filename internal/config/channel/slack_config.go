package channel

// SlackConfig configures state-change notifications to a Slack channel.
type SlackConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	BotToken string `json:"botToken" yaml:"botToken"`
	Channel  string `json:"channel" yaml:"channel"`
}

func DefaultSlackConfig() SlackConfig {
	return SlackConfig{}
}
