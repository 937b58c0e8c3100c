package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppMissingConfigFile(t *testing.T) {
	app := New()
	err := app.Run([]string{"tawny", "-c", "/tmp/this-file-does-not-exist.yml"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestAppMissingNick(t *testing.T) {
	app := New()
	err := app.Run([]string{"tawny"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing bot nick")
}

func TestAppInvalidToken(t *testing.T) {
	app := New()
	err := app.Run([]string{"tawny", "--nick", "tawny", "--token", "abc123", "--channels", "mainchan"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "oauth:")
}

func TestAppNoChannels(t *testing.T) {
	app := New()
	err := app.Run([]string{"tawny", "--nick", "tawny", "--token", "oauth:abc123"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no channels to join")
}

func TestAppEmptyWhitelist(t *testing.T) {
	app := New()
	err := app.Run([]string{"tawny", "--nick", "tawny", "--token", "oauth:abc123", "--channels", "mainchan", "--whitelist-enabled"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "whitelist is enabled but empty")
}
