package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ghaggin/roadmap/internal/metrics"
	"github.com/ghaggin/roadmap/internal/model"
	"github.com/ghaggin/roadmap/internal/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	ProviderCredentials = "credentials"
	minPasswordLen      = 8
	maxPasswordLen      = 72 // bcrypt input limit
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateEmail     = repository.ErrDuplicateEmail
)

type Controller struct {
	repo    repository.Repository
	log     *zap.Logger
	metrics *metrics.Metrics
	cost    int

	dummyOnce sync.Once
	dummyHash []byte
}

type ControllerParams struct {
	fx.In

	Logger  *zap.Logger
	Repo    repository.Repository
	Metrics *metrics.Metrics
}

func NewController(p ControllerParams) (*Controller, error) {
	return newController(p.Repo, p.Logger, p.Metrics, bcrypt.DefaultCost), nil
}

func newController(repo repository.Repository, log *zap.Logger, m *metrics.Metrics, cost int) *Controller {
	return &Controller{
		repo:    repo,
		log:     log,
		metrics: m,
		cost:    cost,
	}
}

// Register creates a local account. Emails are compared case-insensitively.
func (c *Controller) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if !strings.Contains(email, "@") {
		c.metrics.Registrations.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		c.metrics.Registrations.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		c.metrics.Registrations.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		c.metrics.Registrations.WithLabelValues("error").Inc()
		return nil, err
	}

	user := &model.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
	}
	if err := c.repo.AddUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			c.metrics.Registrations.WithLabelValues("duplicate").Inc()
			return nil, ErrDuplicateEmail
		}
		c.metrics.Registrations.WithLabelValues("error").Inc()
		c.log.Error("failed to store user", zap.Error(err))
		return nil, err
	}

	c.metrics.Registrations.WithLabelValues("created").Inc()
	c.log.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Authenticate verifies a local credential pair. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials after a bcrypt comparison.
func (c *Controller) Authenticate(ctx context.Context, email, password string) (model.Identity, error) {
	u, err := c.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			c.log.Error("user lookup failed", zap.Error(err))
		}
		_ = bcrypt.CompareHashAndPassword(c.dummy(), []byte(password))
		c.metrics.Logins.WithLabelValues(ProviderCredentials, "failure").Inc()
		return model.Identity{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		c.metrics.Logins.WithLabelValues(ProviderCredentials, "failure").Inc()
		return model.Identity{}, ErrInvalidCredentials
	}

	c.metrics.Logins.WithLabelValues(ProviderCredentials, "success").Inc()
	return model.Identity{
		ID:       u.ID,
		Email:    u.Email,
		Name:     model.DisplayName(u.Name, u.Email),
		Provider: ProviderCredentials,
	}, nil
}

func (c *Controller) dummy() []byte {
	c.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("roadmap-dummy-password"), c.cost)
		if err != nil {
			c.log.Error("failed to build dummy hash", zap.Error(err))
			return
		}
		c.dummyHash = h
	})
	return c.dummyHash
}
