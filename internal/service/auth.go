package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/repository"
)

// RegisterUser регистрирует нового клиента.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	hashed, err := hashPassword(password)
	if err != nil {
		return 0, err
	}

	id, err := s.repo.CreateUser(ctx, normalizeLogin(login), hashed, model.RoleClient)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return 0, repository.ErrUserExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	u, err := s.repo.GetUserByLogin(ctx, normalizeLogin(login))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// EnsureAdmin создаёт или повышает до администратора учётную запись из конфигурации.
func (s *Service) EnsureAdmin(ctx context.Context, login, password string) (int64, error) {
	if strings.TrimSpace(login) == "" || password == "" {
		return 0, errors.New("admin login and password are required")
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return 0, err
	}
	return s.repo.EnsureAdmin(ctx, normalizeLogin(login), hashed)
}

func hashPassword(password string) ([]byte, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hashed, nil
}

func normalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}
