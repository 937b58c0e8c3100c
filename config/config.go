package config

import (
	"strings"
	"time"
)

const (
	// DefaultCommandPrefix is the character sequence that marks a chat message as a command invocation
	DefaultCommandPrefix = "!"

	// DefaultServerAddr is the Twitch IRC gateway spoken over a WebSocket
	DefaultServerAddr = "wss://irc-ws.chat.twitch.tv:443"

	// DefaultPartDelay defines how long the bot waits between PARTing channels at shutdown
	DefaultPartDelay = time.Second

	// DefaultChannelUpdateInterval defines how often each channel refreshes its stream info
	DefaultChannelUpdateInterval = 5 * time.Minute
)

// Config is the main config struct for the application. Use New to instantiate a default config struct.
type Config struct {
	Nick                  string
	Token                 string
	Channels              []string
	CommandPrefix         string
	ServerAddr            string
	DatabaseURL           string
	RedisURL              string
	PermissionFile        string
	WhitelistEnabled      bool
	WhitelistedCommands   []string
	WhitelistDenyMessage  bool
	HelixClientID         string
	HelixClientSecret     string
	PartDelay             time.Duration
	ChannelUpdateInterval time.Duration
	Debug                 bool
}

// New instantiates a default new config
func New(nick, token string) *Config {
	return &Config{
		Nick:                  strings.ToLower(nick),
		Token:                 token,
		CommandPrefix:         DefaultCommandPrefix,
		ServerAddr:            DefaultServerAddr,
		PartDelay:             DefaultPartDelay,
		ChannelUpdateInterval: DefaultChannelUpdateInterval,
	}
}

// HomeChannel returns the channel whispers and other channel-less replies are relayed through
func (c *Config) HomeChannel() string {
	if len(c.Channels) == 0 {
		return ""
	}
	return c.Channels[0]
}

// CommandBackend returns the backend used for the custom command store
func (c *Config) CommandBackend() Backend {
	if c.DatabaseURL != "" {
		return BackendPostgres
	}
	return BackendMemory
}

// CooldownBackend returns the backend used for the cooldown store
func (c *Config) CooldownBackend() Backend {
	if c.RedisURL != "" {
		return BackendRedis
	}
	return BackendMemory
}

// HelixEnabled returns true if the Twitch Helix API credentials are configured
func (c *Config) HelixEnabled() bool {
	return c.HelixClientID != "" && c.HelixClientSecret != ""
}
