package store

import (
	"strings"
)

// Whitelist is the allow-list gating which built-in commands may run at all
type Whitelist interface {
	IsWhitelisted(name string) bool
	DenyMessageEnabled() bool
}

// ConfigWhitelist is a Whitelist built once from configuration. A disabled
// whitelist allows every command.
type ConfigWhitelist struct {
	enabled     bool
	denyMessage bool
	names       map[string]bool
}

// NewConfigWhitelist creates a whitelist from the configured command names
func NewConfigWhitelist(enabled bool, denyMessage bool, names []string) *ConfigWhitelist {
	whitelist := &ConfigWhitelist{
		enabled:     enabled,
		denyMessage: denyMessage,
		names:       make(map[string]bool),
	}
	for _, name := range names {
		whitelist.names[strings.ToLower(name)] = true
	}
	return whitelist
}

func (w *ConfigWhitelist) IsWhitelisted(name string) bool {
	if !w.enabled {
		return true
	}
	return w.names[strings.ToLower(name)]
}

func (w *ConfigWhitelist) DenyMessageEnabled() bool {
	return w.denyMessage
}
