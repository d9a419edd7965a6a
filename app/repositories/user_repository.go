package repositories

import (
	"context"

	"postcomm/app/database"
	"postcomm/app/models"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	sqlInsertUser = `
		INSERT INTO users (username, password_hash, created_at)
		VALUES (?, ?, ?)`

	sqlGetUserByID = `
		SELECT id, username, password_hash, created_at
		FROM   users
		WHERE  id = ?`

	sqlGetUserByUsername = `
		SELECT id, username, password_hash, created_at
		FROM   users
		WHERE  username = ?`
)

// SQLUserRepository implements UserRepository on SQLite
type SQLUserRepository struct {
	db *sqlx.DB
}

// NewSQLUserRepository creates a new SQLUserRepository
func NewSQLUserRepository(db *sqlx.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

// Create inserts the user and stores the assigned ID on it. A taken
// username yields ErrDuplicate.
func (r *SQLUserRepository) Create(ctx context.Context, user *models.User) error {
	user.BeforeCreate()
	res, err := r.db.ExecContext(ctx, sqlInsertUser, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return errors.Wrap(database.MapError(err), "failed to insert user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to read user id")
	}
	user.ID = id
	return nil
}

// GetByID retrieves a user by ID
func (r *SQLUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, sqlGetUserByID, id); err != nil {
		return nil, database.MapError(err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by their unique username
func (r *SQLUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, sqlGetUserByUsername, username); err != nil {
		return nil, database.MapError(err)
	}
	return &user, nil
}
