package channel

type ChannelsConfig struct {
	WhatsApp WhatsAppConfig `json:"whatsapp" yaml:"whatsapp"`
	Slack    SlackConfig    `json:"slack" yaml:"slack"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
}

func DefaultChannelsConfig() ChannelsConfig {
	return ChannelsConfig{
		WhatsApp: DefaultWhatsAppConfig(),
		Slack:    DefaultSlackConfig(),
		Telegram: DefaultTelegramConfig(),
	}
}
