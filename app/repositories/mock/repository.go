package mock

import (
	"context"
	"sort"
	"sync"

	"postcomm/app/models"
	"postcomm/app/repositories"
)

// Store is an in-memory stand-in for the SQLite database. The three
// repositories share one Store so post deletion can cascade to comments
// and reads can join author names, as the SQL implementations do.
type Store struct {
	mutex         sync.RWMutex
	users         map[int64]*models.User
	posts         map[int64]*models.Post
	comments      map[int64]*models.Comment
	nextUserID    int64
	nextPostID    int64
	nextCommentID int64
}

type UserRepository struct{ store *Store }

type PostRepository struct{ store *Store }

type CommentRepository struct{ store *Store }

// NewStore creates an empty Store
func NewStore() *Store {
	s := &Store{}
	s.Clear()
	return s
}

func (s *Store) Users() *UserRepository       { return &UserRepository{store: s} }
func (s *Store) Posts() *PostRepository       { return &PostRepository{store: s} }
func (s *Store) Comments() *CommentRepository { return &CommentRepository{store: s} }

func (s *Store) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.users = make(map[int64]*models.User)
	s.posts = make(map[int64]*models.Post)
	s.comments = make(map[int64]*models.Comment)
	s.nextUserID, s.nextPostID, s.nextCommentID = 1, 1, 1
}

func (s *Store) authorName(id int64) string {
	if u, ok := s.users[id]; ok {
		return u.Username
	}
	return ""
}

// UserRepository implementation
func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	s := m.store
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return repositories.ErrDuplicate
		}
	}
	user.BeforeCreate()
	user.ID = s.nextUserID
	s.nextUserID++
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (m *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	s := m.store
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	s := m.store
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// PostRepository implementation
func (m *PostRepository) Create(ctx context.Context, post *models.Post) error {
	s := m.store
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.users[post.AuthorID]; !ok {
		return repositories.ErrNotFound
	}
	post.BeforeCreate()
	post.ID = s.nextPostID
	s.nextPostID++
	stored := *post
	stored.Comments = nil
	s.posts[post.ID] = &stored
	return nil
}

func (m *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	s := m.store
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	post, exists := s.posts[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := *post
	copied.AuthorName = s.authorName(post.AuthorID)
	return &copied, nil
}

func (m *PostRepository) List(ctx context.Context) ([]*models.Post, error) {
	s := m.store
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	posts := make([]*models.Post, 0, len(s.posts))
	for _, post := range s.posts {
		copied := *post
		copied.AuthorName = s.authorName(post.AuthorID)
		posts = append(posts, &copied)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts, nil
}

func (m *PostRepository) Delete(ctx context.Context, id int64) error {
	s := m.store
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.posts[id]; !exists {
		return repositories.ErrNotFound
	}
	for cid, comment := range s.comments {
		if comment.PostID == id {
			delete(s.comments, cid)
		}
	}
	delete(s.posts, id)
	return nil
}

// CommentRepository implementation
func (m *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	s := m.store
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.posts[comment.PostID]; !ok {
		return repositories.ErrNotFound
	}
	if _, ok := s.users[comment.AuthorID]; !ok {
		return repositories.ErrNotFound
	}
	comment.BeforeCreate()
	comment.ID = s.nextCommentID
	s.nextCommentID++
	stored := *comment
	s.comments[comment.ID] = &stored
	return nil
}

func (m *CommentRepository) ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error) {
	s := m.store
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	comments := []*models.Comment{}
	for _, comment := range s.comments {
		if comment.PostID == postID {
			copied := *comment
			copied.AuthorName = s.authorName(comment.AuthorID)
			comments = append(comments, &copied)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return comments, nil
}

func (m *CommentRepository) CountByPost(ctx context.Context, postID int64) (int, error) {
	s := m.store
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	n := 0
	for _, comment := range s.comments {
		if comment.PostID == postID {
			n++
		}
	}
	return n, nil
}

var (
	_ repositories.UserRepository    = (*UserRepository)(nil)
	_ repositories.PostRepository    = (*PostRepository)(nil)
	_ repositories.CommentRepository = (*CommentRepository)(nil)
)
