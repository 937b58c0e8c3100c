package store

import (
	"context"
	"fmt"
	"github.com/jonboulle/clockwork"
	"strings"
	"sync"
	"time"
)

// Cooldowns tracks the last execution time of each (channel, command) pair.
// RecordExecution is only ever called after a command actually executed; gated or
// failed invocations must not touch the store.
type Cooldowns interface {
	IsOnCooldown(ctx context.Context, channel string, fullname string, window time.Duration) (bool, error)
	TimeSinceLast(ctx context.Context, channel string, fullname string) (time.Duration, error)
	RecordExecution(ctx context.Context, channel string, fullname string) error
}

// MemoryCooldowns is an in-memory Cooldowns implementation
type MemoryCooldowns struct {
	clock clockwork.Clock
	last  map[string]time.Time
	mu    sync.RWMutex
}

// NewMemoryCooldowns creates an in-memory cooldown store using the given clock
func NewMemoryCooldowns(clock clockwork.Clock) *MemoryCooldowns {
	return &MemoryCooldowns{
		clock: clock,
		last:  make(map[string]time.Time),
	}
}

func (s *MemoryCooldowns) IsOnCooldown(_ context.Context, channel string, fullname string, window time.Duration) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last, ok := s.last[cooldownKey(channel, fullname)]
	if !ok {
		return false, nil
	}
	return s.clock.Since(last) < window, nil
}

// TimeSinceLast returns the elapsed time since the last recorded execution, or zero
// if the command never executed in the channel.
func (s *MemoryCooldowns) TimeSinceLast(_ context.Context, channel string, fullname string) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last, ok := s.last[cooldownKey(channel, fullname)]
	if !ok {
		return 0, nil
	}
	return s.clock.Since(last), nil
}

func (s *MemoryCooldowns) RecordExecution(_ context.Context, channel string, fullname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[cooldownKey(channel, fullname)] = s.clock.Now()
	return nil
}

func cooldownKey(channel string, fullname string) string {
	return fmt.Sprintf("cooldown:%s:%s", strings.ToLower(channel), strings.ToLower(fullname))
}
