package bot

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/tawnybot/tawny/store"
	"testing"
)

func TestCommandRegistryLookup(t *testing.T) {
	registry := newCommandRegistry("!", store.NewMemoryCommands())
	registry.register(&Command{Name: "ping", Context: ContextBoth})
	ctx := context.Background()

	cmd, err := registry.lookup(ctx, "mainchan", "!ping")
	assert.NoError(t, err)
	assert.Equal(t, "!ping", cmd.Fullname)

	// case-insensitive
	cmd, err = registry.lookup(ctx, "mainchan", "!PING")
	assert.NoError(t, err)
	assert.NotNil(t, cmd)

	// idempotent: same input, unchanged registry, equal result
	again, err := registry.lookup(ctx, "mainchan", "!ping")
	assert.NoError(t, err)
	assert.Equal(t, cmd, again)

	// not a command at all
	cmd, err = registry.lookup(ctx, "mainchan", "ping")
	assert.NoError(t, err)
	assert.Nil(t, cmd)

	// unknown command
	cmd, err = registry.lookup(ctx, "mainchan", "!nope")
	assert.NoError(t, err)
	assert.Nil(t, cmd)
}

func TestCommandRegistryCustomFallback(t *testing.T) {
	customs := store.NewMemoryCommands()
	registry := newCommandRegistry("!", customs)
	ctx := context.Background()

	assert.NoError(t, customs.Add(ctx, &store.CustomCommand{Channel: "mainchan", Name: "hello", Response: "hi {user}!"}))

	cmd, err := registry.lookup(ctx, "mainchan", "!hello")
	assert.NoError(t, err)
	assert.NotNil(t, cmd)
	assert.True(t, cmd.custom)
	assert.Equal(t, "!hello", cmd.Fullname)

	// custom commands are channel-scoped
	cmd, err = registry.lookup(ctx, "otherchan", "!hello")
	assert.NoError(t, err)
	assert.Nil(t, cmd)
}

func TestExpandResponse(t *testing.T) {
	msg := &Message{Author: "alice", ChannelName: "mainchan"}
	assert.Equal(t, "hi alice, welcome to mainchan", expandResponse("hi {user}, welcome to {channel}", msg))
}
