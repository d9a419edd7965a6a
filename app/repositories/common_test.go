package repositories

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"postcomm/app/database"
	"postcomm/app/models"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.OpenAndMigrate(database.MemoryPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, repo *SQLUserRepository, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "$2a$04$hash-for-" + username}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func createTestPost(t *testing.T, repo *SQLPostRepository, author *models.User, title string) *models.Post {
	t.Helper()
	post := &models.Post{Title: title, Content: "Content of " + title, AuthorID: author.ID}
	require.NoError(t, repo.Create(context.Background(), post))
	return post
}
