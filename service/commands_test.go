package service

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"postcomm/app/config"
	"postcomm/app/sessions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestConfig points the database and session store into a temp dir
func setupTestConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()
	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(tmpDir, "test.db")
	cfg.SessionDir = filepath.Join(tmpDir, "sessions")
	return cfg
}

func console(input string) (Console, *bytes.Buffer) {
	var out bytes.Buffer
	return Console{In: strings.NewReader(input), Out: &out}, &out
}

// seedSessions creates n sessions in the configured store
func seedSessions(t *testing.T, cfg *config.Config, n int) []string {
	t.Helper()
	store, err := sessions.Open(cfg.SessionDir, 0, discardLogger())
	require.NoError(t, err)
	defer store.Close()

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		sess, err := store.Create(int64(i+1), "user")
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}
	return ids
}

func countSessions(t *testing.T, cfg *config.Config) int {
	t.Helper()
	store, err := sessions.Open(cfg.SessionDir, 0, discardLogger())
	require.NoError(t, err)
	defer store.Close()
	n, err := store.Count()
	require.NoError(t, err)
	return n
}

func TestMigrateCommands(t *testing.T) {
	cfg := setupTestConfig(t)

	con, out := console("")
	require.NoError(t, MigrateVersion(cfg, discardLogger(), con))
	assert.Equal(t, "Schema version 0\n", out.String())

	con, out = console("")
	require.NoError(t, MigrateUp(cfg, discardLogger(), con))
	assert.Equal(t, "Schema version 2\n", out.String())

	t.Run("down declined", func(t *testing.T) {
		con, _ := console("n\n")
		assert.ErrorIs(t, MigrateDown(cfg, discardLogger(), con, 1), ErrCancelled)
	})

	t.Run("down confirmed", func(t *testing.T) {
		con, out := console("y\n")
		require.NoError(t, MigrateDown(cfg, discardLogger(), con, 1))
		assert.Contains(t, out.String(), "Schema version 1")
	})

	t.Run("down invalid steps", func(t *testing.T) {
		con := Console{Out: io.Discard, Yes: true}
		assert.Error(t, MigrateDown(cfg, discardLogger(), con, 0))
	})
}

func TestCleanSessions(t *testing.T) {
	t.Run("missing store", func(t *testing.T) {
		cfg := setupTestConfig(t)
		con, out := console("")
		require.NoError(t, CleanSessions(cfg, discardLogger(), con))
		assert.Contains(t, out.String(), "already clean")
	})

	t.Run("cancelled", func(t *testing.T) {
		cfg := setupTestConfig(t)
		seedSessions(t, cfg, 2)
		con, out := console("n\n")
		assert.ErrorIs(t, CleanSessions(cfg, discardLogger(), con), ErrCancelled)
		assert.Contains(t, out.String(), "Operation cancelled")
		assert.Equal(t, 2, countSessions(t, cfg))
	})

	t.Run("confirmed", func(t *testing.T) {
		cfg := setupTestConfig(t)
		seedSessions(t, cfg, 2)
		con, out := console("y\n")
		require.NoError(t, CleanSessions(cfg, discardLogger(), con))
		assert.Contains(t, out.String(), "Removed 2 session(s)")
		assert.Zero(t, countSessions(t, cfg))
	})
}

func TestBackupAndRestoreSessions(t *testing.T) {
	cfg := setupTestConfig(t)
	ids := seedSessions(t, cfg, 3)
	backupDir := filepath.Join(t.TempDir(), "backups")

	con, out := console("")
	backupFile, err := BackupSessions(cfg, discardLogger(), con, backupDir)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "backed up successfully")
	fi, err := os.Stat(backupFile)
	require.NoError(t, err)
	assert.NotZero(t, fi.Size())

	t.Run("restore declined keeps store", func(t *testing.T) {
		con, _ := console("n\n")
		assert.ErrorIs(t, RestoreSessions(cfg, discardLogger(), con, backupFile), ErrCancelled)
		assert.Equal(t, 3, countSessions(t, cfg))
	})

	t.Run("restore into a fresh store", func(t *testing.T) {
		target := setupTestConfig(t)
		con, out := console("")
		require.NoError(t, RestoreSessions(target, discardLogger(), con, backupFile))
		assert.Contains(t, out.String(), "restored successfully")

		store, err := sessions.Open(target.SessionDir, 0, discardLogger())
		require.NoError(t, err)
		defer store.Close()
		for _, id := range ids {
			_, err := store.Get(id)
			assert.NoError(t, err)
		}
	})

	t.Run("restore replaces existing store", func(t *testing.T) {
		target := setupTestConfig(t)
		seedSessions(t, target, 5)
		con := Console{Out: io.Discard, Yes: true}
		require.NoError(t, RestoreSessions(target, discardLogger(), con, backupFile))
		assert.Equal(t, 3, countSessions(t, target))
	})
}

func TestBackupWithoutStore(t *testing.T) {
	cfg := setupTestConfig(t)
	con, _ := console("")
	_, err := BackupSessions(cfg, discardLogger(), con, t.TempDir())
	assert.Error(t, err)
}

func TestRestoreInvalidFile(t *testing.T) {
	cfg := setupTestConfig(t)
	con := Console{Out: io.Discard, Yes: true}

	err := RestoreSessions(cfg, discardLogger(), con, filepath.Join(t.TempDir(), "missing.bak"))
	assert.ErrorContains(t, err, "does not exist")

	empty := filepath.Join(t.TempDir(), "empty.bak")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	err = RestoreSessions(cfg, discardLogger(), con, empty)
	assert.ErrorContains(t, err, "is empty")
}
