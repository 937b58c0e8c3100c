package store

import (
	"strings"
	"sync"
)

// Disabled tracks which built-in commands are disabled per channel
type Disabled interface {
	IsDisabled(channel string, name string) bool
	Disable(channel string, name string)
	Enable(channel string, name string)
}

// MemoryDisabled is an in-memory Disabled implementation
type MemoryDisabled struct {
	disabled map[string]bool
	mu       sync.RWMutex
}

// NewMemoryDisabled creates an empty disabled command set
func NewMemoryDisabled() *MemoryDisabled {
	return &MemoryDisabled{
		disabled: make(map[string]bool),
	}
}

func (s *MemoryDisabled) IsDisabled(channel string, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disabled[disabledKey(channel, name)]
}

func (s *MemoryDisabled) Disable(channel string, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled[disabledKey(channel, name)] = true
}

func (s *MemoryDisabled) Enable(channel string, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.disabled, disabledKey(channel, name))
}

func disabledKey(channel string, name string) string {
	return strings.ToLower(channel) + "/" + strings.ToLower(name)
}
