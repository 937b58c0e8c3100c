package store

import (
	"fmt"
	"gopkg.in/yaml.v2"
	"os"
	"strings"
	"sync"
)

// PermissionAll is the wildcard granting every permission
const PermissionAll = "*"

// Permissions answers whether a user holds a permission in a channel
type Permissions interface {
	HasPermission(channel string, user string, permission string) bool
}

// PermissionGroup is a named set of channel members and the permissions they hold
type PermissionGroup struct {
	Members     []string `yaml:"members"`
	Permissions []string `yaml:"permissions"`
}

// MemoryPermissions is an in-memory Permissions implementation, optionally loaded
// from a YAML file mapping channel -> group name -> group
type MemoryPermissions struct {
	channels map[string]map[string]*PermissionGroup
	mu       sync.RWMutex
}

// NewMemoryPermissions creates an empty permission store
func NewMemoryPermissions() *MemoryPermissions {
	return &MemoryPermissions{
		channels: make(map[string]map[string]*PermissionGroup),
	}
}

// LoadPermissions reads a permission store from the given YAML file
func LoadPermissions(filename string) (*MemoryPermissions, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	channels := make(map[string]map[string]*PermissionGroup)
	if err := yaml.Unmarshal(b, &channels); err != nil {
		return nil, fmt.Errorf("cannot parse permission file %s: %w", filename, err)
	}
	store := NewMemoryPermissions()
	for channel, groups := range channels {
		for name, group := range groups {
			store.Grant(channel, name, group)
		}
	}
	return store, nil
}

// Grant adds or replaces a permission group for a channel
func (s *MemoryPermissions) Grant(channel string, name string, group *PermissionGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	channel = strings.ToLower(channel)
	if s.channels[channel] == nil {
		s.channels[channel] = make(map[string]*PermissionGroup)
	}
	s.channels[channel][strings.ToLower(name)] = group
}

func (s *MemoryPermissions) HasPermission(channel string, user string, permission string) bool {
	if permission == "" {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	user = strings.ToLower(user)
	for _, group := range s.channels[strings.ToLower(channel)] {
		if !containsFold(group.Members, user) {
			continue
		}
		if containsFold(group.Permissions, permission) || containsFold(group.Permissions, PermissionAll) {
			return true
		}
	}
	return false
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
