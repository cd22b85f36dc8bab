package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smp/pkg/platform/sentinel"
)

func writeUsers(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	ctx := context.Background()

	t.Run("loads users and defaults id to login name", func(t *testing.T) {
		path := writeUsers(t, `
users:
  - id: u-1
    login_name: alice
    password_hash: hash-a
  - login_name: bob
    password_hash: hash-b
`)
		s, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 2, s.Len())

		alice, err := s.FindByLoginName(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "u-1", alice.ID)

		bob, err := s.FindByLoginName(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "bob", bob.ID)

		_, err = s.FindByLoginName(ctx, "carol")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		path := writeUsers(t, `
users:
  - login_name: alice
    password_hash: a
  - login_name: alice
    password_hash: b
`)
		_, err := LoadFile(path)
		assert.ErrorContains(t, err, "duplicate login_name")
	})

	t.Run("rejects entries without hash", func(t *testing.T) {
		_, err := LoadFile(writeUsers(t, "users:\n  - login_name: alice\n"))
		assert.ErrorContains(t, err, "needs login_name and password_hash")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("reload swaps users", func(t *testing.T) {
		s, err := LoadFile(writeUsers(t, "users:\n  - login_name: alice\n    password_hash: a\n"))
		require.NoError(t, err)
		require.NoError(t, s.Reload(writeUsers(t, "users:\n  - login_name: bob\n    password_hash: b\n")))

		_, err = s.FindByLoginName(ctx, "alice")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = s.FindByLoginName(ctx, "bob")
		assert.NoError(t, err)
	})
}
