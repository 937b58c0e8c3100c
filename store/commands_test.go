package store

import (
	"context"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestMemoryCommands(t *testing.T) {
	commands := NewMemoryCommands()
	ctx := context.Background()

	command, err := commands.Get(ctx, "mainchan", "hello")
	assert.NoError(t, err)
	assert.Nil(t, command)

	assert.NoError(t, commands.Add(ctx, &CustomCommand{Channel: "mainchan", Name: "hello", Response: "Hello there!"}))

	command, err = commands.Get(ctx, "mainchan", "hello")
	assert.NoError(t, err)
	assert.Equal(t, "Hello there!", command.Response)

	// lookup is idempotent
	again, err := commands.Get(ctx, "MainChan", "HELLO")
	assert.NoError(t, err)
	assert.Equal(t, command, again)

	list, err := commands.List(ctx, "mainchan")
	assert.NoError(t, err)
	assert.Len(t, list, 1)

	assert.NoError(t, commands.Delete(ctx, "mainchan", "hello"))
	command, err = commands.Get(ctx, "mainchan", "hello")
	assert.NoError(t, err)
	assert.Nil(t, command)
}

func TestConfigWhitelist(t *testing.T) {
	whitelist := NewConfigWhitelist(true, false, []string{"!ping", "!help"})
	assert.True(t, whitelist.IsWhitelisted("!ping"))
	assert.True(t, whitelist.IsWhitelisted("!PING"))
	assert.False(t, whitelist.IsWhitelisted("!secret"))
	assert.False(t, whitelist.DenyMessageEnabled())

	disabled := NewConfigWhitelist(false, true, nil)
	assert.True(t, disabled.IsWhitelisted("!anything"))
	assert.True(t, disabled.DenyMessageEnabled())
}

func TestMemoryDisabled(t *testing.T) {
	disabled := NewMemoryDisabled()
	assert.False(t, disabled.IsDisabled("mainchan", "!ping"))
	disabled.Disable("mainchan", "!ping")
	assert.True(t, disabled.IsDisabled("mainchan", "!PING"))
	assert.False(t, disabled.IsDisabled("otherchan", "!ping"))
	disabled.Enable("mainchan", "!ping")
	assert.False(t, disabled.IsDisabled("mainchan", "!ping"))
}
