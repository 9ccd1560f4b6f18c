package repository

import (
	"context"
	"errors"

	"github.com/ghaggin/roadmap/internal/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Repository stores local-credential users. Emails are compared in their
// normalized (lowercased, trimmed) form.
type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	AddUser(ctx context.Context, user *model.User) error
	GetUsers(ctx context.Context) ([]model.User, error)
}
