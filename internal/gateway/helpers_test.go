package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/ghaggin/roadmap/internal/model"
)

var errNoSession = errors.New("no session")

type stubSessions struct {
	session *model.Session
	err     error
	calls   int
}

func (s *stubSessions) Get(context.Context) (*model.Session, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.session == nil {
		return nil, errNoSession
	}
	return s.session, nil
}

func validSession(userID string) *model.Session {
	now := time.Now()
	return &model.Session{
		UserID:    userID,
		Email:     userID + "@example.com",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

type failingMinter struct{}

func (failingMinter) Mint(string) (string, error) {
	return "", errors.New("signing fault")
}
