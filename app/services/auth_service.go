package services

import (
	"context"
	"fmt"

	"postcomm/app/models"
	"postcomm/app/repositories"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the longest input bcrypt accepts
const maxPasswordBytes = 72

// AuthService handles registration and credential checks
type AuthService struct {
	userRepo  repositories.UserRepository
	cost      int
	dummyHash []byte
}

// NewAuthService creates a new AuthService hashing with the given bcrypt cost
func NewAuthService(userRepo repositories.UserRepository, cost int) *AuthService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// Compared against when the username is unknown so both failure paths
	// cost one bcrypt comparison.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("postcomm-dummy-password"), cost)
	return &AuthService{userRepo: userRepo, cost: cost, dummyHash: dummy}
}

// Register creates a user with a bcrypt hash of the password
func (s *AuthService) Register(ctx context.Context, form models.CredentialsForm) (*models.User, error) {
	if err := models.ValidateForm(&form); err != nil {
		return nil, newValidationError(err)
	}

	// bcrypt reads at most 72 bytes; the form limit counts characters.
	if len(form.Password) > maxPasswordBytes {
		return nil, &ValidationError{Fields: map[string]string{
			"Password": fmt.Sprintf("must be at most %d bytes", maxPasswordBytes),
		}}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, &ValidationError{Fields: map[string]string{
			"Password": fmt.Sprintf("must be at most %d bytes", maxPasswordBytes),
		}}
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := &models.User{Username: form.Username, PasswordHash: string(hash)}
	if err := user.Validate(); err != nil {
		return nil, newValidationError(err)
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, errors.Wrap(err, "failed to create user")
	}
	return user, nil
}

// Login returns the user whose credentials match, or ErrInvalidCredentials
func (s *AuthService) Login(ctx context.Context, form models.CredentialsForm) (*models.User, error) {
	if err := models.ValidateForm(&form); err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByUsername(ctx, form.Username)
	if errors.Is(err, repositories.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(form.Password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
