package channel

// TelegramConfig configures state-change notifications to a Telegram chat.
type TelegramConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Token   string `json:"token" yaml:"token"`
	ChatID  int64  `json:"chatId" yaml:"chatId"`
}

func DefaultTelegramConfig() TelegramConfig {
	return TelegramConfig{}
}
