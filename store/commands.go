// Package store contains the persistence collaborators the bot consumes: per-channel
// custom commands, cooldown timestamps, permissions, the command whitelist and the
// per-channel disabled command set. Each store is a small interface with a memory
// implementation and, where it makes sense, a networked one.
package store

import (
	"context"
	"strings"
	"sync"
)

// CustomCommand is one persisted per-channel command record
type CustomCommand struct {
	Channel  string
	Name     string
	Response string
}

// Commands is the custom command store consumed by the bot's command lookup.
// Get returns nil (and no error) if no matching record exists.
type Commands interface {
	Get(ctx context.Context, channel string, name string) (*CustomCommand, error)
	Add(ctx context.Context, command *CustomCommand) error
	Delete(ctx context.Context, channel string, name string) error
	List(ctx context.Context, channel string) ([]*CustomCommand, error)
}

// MemoryCommands is an in-memory Commands implementation, used when no database is configured
type MemoryCommands struct {
	commands map[string]map[string]*CustomCommand
	mu       sync.RWMutex
}

// NewMemoryCommands creates an empty in-memory custom command store
func NewMemoryCommands() *MemoryCommands {
	return &MemoryCommands{
		commands: make(map[string]map[string]*CustomCommand),
	}
}

func (s *MemoryCommands) Get(_ context.Context, channel string, name string) (*CustomCommand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	command, ok := s.commands[strings.ToLower(channel)][strings.ToLower(name)]
	if !ok {
		return nil, nil
	}
	return command, nil
}

func (s *MemoryCommands) Add(_ context.Context, command *CustomCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	channel := strings.ToLower(command.Channel)
	if s.commands[channel] == nil {
		s.commands[channel] = make(map[string]*CustomCommand)
	}
	s.commands[channel][strings.ToLower(command.Name)] = command
	return nil
}

func (s *MemoryCommands) Delete(_ context.Context, channel string, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.commands[strings.ToLower(channel)], strings.ToLower(name))
	return nil
}

func (s *MemoryCommands) List(_ context.Context, channel string) ([]*CustomCommand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	commands := make([]*CustomCommand, 0)
	for _, command := range s.commands[strings.ToLower(channel)] {
		commands = append(commands, command)
	}
	return commands, nil
}
