package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate checks the password against the stored bcrypt hash. Unknown
// username and wrong password produce the same error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, shared.ErrNotFound) {
		return User{}, shared.ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, fmt.Errorf("%w: invalid user id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, user User, password string) (User, error) {
	if err := validate(user, password, true); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user.PasswordHash = string(hash)
	return s.repo.Create(ctx, user)
}

// Update replaces the user; a blank password keeps the current hash.
func (s *Service) Update(ctx context.Context, id int64, user User, password string) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid user id", shared.ErrValidation)
	}
	if err := validate(user, password, false); err != nil {
		return err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	user.PasswordHash = current.PasswordHash
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.PasswordHash = string(hash)
	}
	return s.repo.Update(ctx, id, user)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid user id", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

func validate(user User, password string, passwordRequired bool) error {
	if user.Name == "" || user.Username == "" {
		return fmt.Errorf("%w: name and username required", shared.ErrValidation)
	}
	if user.Role != RoleAdmin && user.Role != RoleOperator {
		return fmt.Errorf("%w: invalid role %q", shared.ErrValidation, user.Role)
	}
	if passwordRequired && len(password) < 6 {
		return fmt.Errorf("%w: password must have at least 6 characters", shared.ErrValidation)
	}
	if !passwordRequired && password != "" && len(password) < 6 {
		return fmt.Errorf("%w: password must have at least 6 characters", shared.ErrValidation)
	}
	return nil
}
