package store

import (
	"github.com/stretchr/testify/assert"
	"os"
	"path/filepath"
	"testing"
)

const testPermissionFile = `
mainchan:
  moderators:
    members: [alice, bob]
    permissions: [manage_commands, bypass_cooldown]
  admins:
    members: [streamer]
    permissions: ["*"]
`

func TestLoadPermissions(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "permissions.yml")
	if err := os.WriteFile(filename, []byte(testPermissionFile), 0600); err != nil {
		t.Fatal(err)
	}
	perms, err := LoadPermissions(filename)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, perms.HasPermission("mainchan", "alice", "manage_commands"))
	assert.True(t, perms.HasPermission("MAINCHAN", "Bob", "bypass_cooldown"))
	assert.False(t, perms.HasPermission("mainchan", "alice", "admin"))
	assert.True(t, perms.HasPermission("mainchan", "streamer", "admin")) // wildcard
	assert.False(t, perms.HasPermission("otherchan", "alice", "manage_commands"))
	assert.False(t, perms.HasPermission("mainchan", "mallory", "manage_commands"))
}

func TestPermissionsEmptyRequirement(t *testing.T) {
	perms := NewMemoryPermissions()
	assert.True(t, perms.HasPermission("mainchan", "anyone", ""))
}
