package store

import (
	"context"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func TestMemoryCooldownsWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cooldowns := NewMemoryCooldowns(clock)
	ctx := context.Background()

	onCooldown, err := cooldowns.IsOnCooldown(ctx, "mainchan", "!ping", 5*time.Second)
	assert.NoError(t, err)
	assert.False(t, onCooldown)

	assert.NoError(t, cooldowns.RecordExecution(ctx, "mainchan", "!ping"))
	clock.Advance(2 * time.Second)

	onCooldown, err = cooldowns.IsOnCooldown(ctx, "mainchan", "!ping", 5*time.Second)
	assert.NoError(t, err)
	assert.True(t, onCooldown)

	since, err := cooldowns.TimeSinceLast(ctx, "mainchan", "!ping")
	assert.NoError(t, err)
	assert.Equal(t, 2*time.Second, since)

	clock.Advance(3 * time.Second)
	onCooldown, err = cooldowns.IsOnCooldown(ctx, "mainchan", "!ping", 5*time.Second)
	assert.NoError(t, err)
	assert.False(t, onCooldown)
}

func TestMemoryCooldownsPerChannel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cooldowns := NewMemoryCooldowns(clock)
	ctx := context.Background()

	assert.NoError(t, cooldowns.RecordExecution(ctx, "mainchan", "!ping"))
	onCooldown, err := cooldowns.IsOnCooldown(ctx, "otherchan", "!ping", 5*time.Second)
	assert.NoError(t, err)
	assert.False(t, onCooldown)

	since, err := cooldowns.TimeSinceLast(ctx, "otherchan", "!ping")
	assert.NoError(t, err)
	assert.Equal(t, time.Duration(0), since)
}
