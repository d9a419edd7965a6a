package service

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"postcomm/app/config"
	"postcomm/app/database"
	"postcomm/app/sessions"

	"github.com/pkg/errors"
)

// ErrCancelled is returned when the operator declines a confirmation prompt
var ErrCancelled = errors.New("operation cancelled")

// Console is where commands read confirmations from and report to
type Console struct {
	In  io.Reader
	Out io.Writer
	// Yes answers every confirmation prompt with yes.
	Yes bool
}

func (c Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format, args...)
}

// confirm asks a yes/no question, defaulting to no
func (c Console) confirm(question string) bool {
	if c.Yes {
		return true
	}
	c.printf("%s [y/N] ", question)
	line, _ := bufio.NewReader(c.In).ReadString('\n')
	answer := strings.TrimSpace(line)
	return answer == "y" || answer == "Y"
}

// MigrateUp applies every pending schema migration
func MigrateUp(cfg *config.Config, logger *slog.Logger, con Console) error {
	return withMigrator(cfg, logger, func(m *database.Migrator) error {
		if err := m.Up(); err != nil {
			return err
		}
		return printVersion(m, con)
	})
}

// MigrateDown rolls back the given number of schema migrations
func MigrateDown(cfg *config.Config, logger *slog.Logger, con Console, steps int) error {
	return withMigrator(cfg, logger, func(m *database.Migrator) error {
		if !con.confirm(fmt.Sprintf("Roll back %d migration(s)? Data in dropped tables is lost.", steps)) {
			return ErrCancelled
		}
		if err := m.Down(steps); err != nil {
			return err
		}
		return printVersion(m, con)
	})
}

// MigrateVersion prints the current schema version
func MigrateVersion(cfg *config.Config, logger *slog.Logger, con Console) error {
	return withMigrator(cfg, logger, func(m *database.Migrator) error {
		return printVersion(m, con)
	})
}

func withMigrator(cfg *config.Config, logger *slog.Logger, fn func(m *database.Migrator) error) error {
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := database.NewMigrator(db, logger)
	if err != nil {
		return err
	}
	return fn(m)
}

func printVersion(m *database.Migrator, con Console) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		con.printf("Schema version %d (dirty)\n", version)
	} else {
		con.printf("Schema version %d\n", version)
	}
	return nil
}

// CleanSessions deletes every stored session, logging all users out
func CleanSessions(cfg *config.Config, logger *slog.Logger, con Console) error {
	if _, err := os.Stat(cfg.SessionDir); os.IsNotExist(err) {
		con.printf("Session store is already clean (does not exist)\n")
		return nil
	}

	if !con.confirm("Are you sure you want to clear all sessions? Every user will be logged out.") {
		con.printf("Operation cancelled\n")
		return ErrCancelled
	}

	store, err := sessions.Open(cfg.SessionDir, cfg.SessionTTL, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Count()
	if err != nil {
		return err
	}
	if err := store.Clean(); err != nil {
		return err
	}
	con.printf("Removed %d session(s)\n", n)
	return nil
}

// BackupSessions writes a Badger backup of the session store into dir and
// returns the file name
func BackupSessions(cfg *config.Config, logger *slog.Logger, con Console, dir string) (string, error) {
	if _, err := os.Stat(cfg.SessionDir); os.IsNotExist(err) {
		return "", errors.New("no session store exists to back up")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create backup directory")
	}

	store, err := sessions.Open(cfg.SessionDir, cfg.SessionTTL, logger)
	if err != nil {
		return "", err
	}
	defer store.Close()

	backupFile := filepath.Join(dir, fmt.Sprintf("sessions_%d.bak", time.Now().UnixNano()))
	f, err := os.Create(backupFile)
	if err != nil {
		return "", errors.Wrap(err, "failed to create backup file")
	}
	defer f.Close()

	if err := store.Backup(f); err != nil {
		return "", err
	}
	con.printf("Sessions backed up successfully to %s\n", backupFile)
	return backupFile, nil
}

// RestoreSessions replaces the session store with the contents of a backup
func RestoreSessions(cfg *config.Config, logger *slog.Logger, con Console, backupFile string) (err error) {
	fi, err := os.Stat(backupFile)
	if os.IsNotExist(err) {
		return errors.Errorf("backup file does not exist: %s", backupFile)
	}
	if err != nil {
		return errors.Wrap(err, "failed to stat backup file")
	}
	if fi.Size() == 0 {
		return errors.Errorf("backup file is empty: %s", backupFile)
	}

	if _, err := os.Stat(cfg.SessionDir); err == nil {
		if !con.confirm("Existing session store found. Do you want to replace it?") {
			con.printf("Operation cancelled\n")
			return ErrCancelled
		}
		if err := os.RemoveAll(cfg.SessionDir); err != nil {
			return errors.Wrap(err, "failed to remove existing session store")
		}
	}

	f, err := os.Open(backupFile)
	if err != nil {
		return errors.Wrap(err, "failed to open backup file")
	}
	defer f.Close()

	store, err := sessions.Open(cfg.SessionDir, cfg.SessionTTL, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// Badger panics on some malformed backups.
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic occurred during restore: %v", r)
		}
	}()
	if err := store.Restore(f); err != nil {
		return err
	}
	con.printf("Sessions restored successfully\n")
	return nil
}
