package server

// ServerConfig holds the dashboard HTTP server settings.
type ServerConfig struct {
	Host           string   `json:"host" yaml:"host"`
	Port           int      `json:"port" yaml:"port"`
	AllowedOrigins []string `json:"allowedOrigins" yaml:"allowedOrigins"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{Host: "127.0.0.1", Port: 18790, AllowedOrigins: []string{}}
}
