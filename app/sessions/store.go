// Package sessions keeps server-side login sessions and flash messages in
// Badger. The browser only ever holds the opaque session ID.
package sessions

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// KeyPrefix is prepended to every session ID stored in Badger
const KeyPrefix = "session:"

// ErrNotFound is returned for unknown or expired session IDs
var ErrNotFound = errors.New("session not found")

// Session is the server-side state behind a session cookie. A session with
// a zero UserID is anonymous and only exists to carry flash messages.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Flashes   []string  `json:"flashes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Authenticated reports whether a user is logged in on this session
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != 0
}

// Store persists sessions in a Badger database
type Store struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// Open opens the Badger directory at dir, or an in-memory database when dir
// is empty. A positive ttl expires sessions that long after their last save.
func Open(dir string, ttl time.Duration, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create session directory")
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.
		WithLogger(&badgerLogger{logger: logger.With("component", "badger")}).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open session store")
	}
	return NewStore(db, ttl, logger), nil
}

// NewStore wraps an already opened Badger database
func NewStore(db *badger.DB, ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, ttl: ttl, logger: logger}
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Create stores a new session for the given user. Pass a zero userID for
// an anonymous session.
func (s *Store) Create(userID int64, username string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a session by ID
func (s *Store) Get(id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	var sess Session
	err := s.db.View(func(txn *badger.Txn) error {
		return getSession(txn, id, &sess)
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Save writes the session, refreshing its expiry
func (s *Store) Save(sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("session has no ID")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return s.putSession(txn, sess)
	})
}

// Delete removes a session. Deleting an unknown ID is not an error.
func (s *Store) Delete(id string) error {
	if id == "" {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(KeyPrefix + id))
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete session")
	}
	return nil
}

// AddFlash appends a message to the session's pending flashes
func (s *Store) AddFlash(id, message string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var sess Session
		if err := getSession(txn, id, &sess); err != nil {
			return err
		}
		sess.Flashes = append(sess.Flashes, message)
		return s.putSession(txn, &sess)
	})
}

// PopFlashes returns the pending flashes and clears them, so each message
// is shown exactly once.
func (s *Store) PopFlashes(id string) ([]string, error) {
	var flashes []string
	err := s.db.Update(func(txn *badger.Txn) error {
		var sess Session
		if err := getSession(txn, id, &sess); err != nil {
			return err
		}
		if len(sess.Flashes) == 0 {
			return nil
		}
		flashes = sess.Flashes
		sess.Flashes = nil
		return s.putSession(txn, &sess)
	})
	if err != nil {
		return nil, err
	}
	return flashes, nil
}

// Count returns the number of live sessions
func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(KeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to count sessions")
	}
	return n, nil
}

// Clean removes every session, logging every user out
func (s *Store) Clean() error {
	if err := s.db.DropPrefix([]byte(KeyPrefix)); err != nil {
		return errors.Wrap(err, "failed to drop sessions")
	}
	return nil
}

// Backup writes a full dump of the store to w
func (s *Store) Backup(w io.Writer) error {
	if _, err := s.db.Backup(w, 0); err != nil {
		return errors.Wrap(err, "failed to back up sessions")
	}
	return nil
}

// Restore loads a dump produced by Backup
func (s *Store) Restore(r io.Reader) error {
	if err := s.db.Load(r, 4); err != nil {
		return errors.Wrap(err, "failed to restore sessions")
	}
	return nil
}

// RunGC reclaims value log space until ctx is cancelled. It is a no-op for
// in-memory stores.
func (s *Store) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				err := s.db.RunValueLogGC(0.5)
				if err == nil {
					continue
				}
				if errors.Is(err, badger.ErrGCInMemoryMode) {
					return
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					s.logger.Warn("session value log gc failed", "error", err)
				}
				break
			}
		}
	}
}

func getSession(txn *badger.Txn, id string, sess *Session) error {
	item, err := txn.Get([]byte(KeyPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "failed to read session")
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, sess); err != nil {
			return errors.Wrap(err, "failed to unmarshal session")
		}
		return nil
	})
}

func (s *Store) putSession(txn *badger.Txn, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}
	entry := badger.NewEntry([]byte(KeyPrefix+sess.ID), data)
	if s.ttl > 0 {
		entry = entry.WithTTL(s.ttl)
	}
	if err := txn.SetEntry(entry); err != nil {
		return errors.Wrap(err, "failed to write session")
	}
	return nil
}
