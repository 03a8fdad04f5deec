package user

import (
	"context"
	"strings"

	"github.com/otp-identity-api/internal/domain"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

// Page is one slice of the admin user listing.
type Page struct {
	Users      []domain.User `json:"users"`
	NextCursor string        `json:"next_cursor"`
}

// Service is the read-only user directory used by administrators.
type Service interface {
	List(ctx context.Context, limit int, cursor, search string) (*Page, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type userStore interface {
	ScanPage(ctx context.Context, limit int32, cursor, search string) ([]domain.User, string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type service struct {
	repo userStore
}

func NewService(repo userStore) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, limit int, cursor, search string) (*Page, error) {
	switch {
	case limit < 1:
		limit = defaultLimit
	case limit > maxLimit:
		limit = maxLimit
	}
	users, next, err := s.repo.ScanPage(ctx, int32(limit), cursor, strings.TrimSpace(search))
	if err != nil {
		return nil, err
	}
	return &Page{Users: users, NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}
