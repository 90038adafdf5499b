package channel

// WhatsAppConfig points the bridge driver at the WhatsApp Node.js bridge.
type WhatsAppConfig struct {
	BridgeURL   string `json:"bridgeUrl" yaml:"bridgeUrl"`
	BridgeToken string `json:"bridgeToken" yaml:"bridgeToken"`
}

func DefaultWhatsAppConfig() WhatsAppConfig {
	return WhatsAppConfig{BridgeURL: "ws://localhost:3001"}
}
