package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/repository"
)

func TestRegisterUser_CreatesClientWithBcryptHash(t *testing.T) {
	repo := &stubRepo{createUserID: 7}
	svc := NewService(repo, Options{})

	id, err := svc.RegisterUser(context.Background(), "  Amine ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, model.RoleClient, repo.createdRole)
	assert.NoError(t, bcrypt.CompareHashAndPassword(repo.createdHash, []byte("secret123")))
}

func TestRegisterUser_PropagatesDuplicateError(t *testing.T) {
	repo := &stubRepo{createUserErr: repository.ErrUserExists}
	svc := NewService(repo, Options{})

	_, err := svc.RegisterUser(context.Background(), "login", "pass")
	assert.ErrorIs(t, err, repository.ErrUserExists)
}

func TestAuthenticateUser(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{ID: 1, Login: "user", PasswordHash: hashed, Role: model.RoleAdmin}

	tests := []struct {
		name     string
		repo     *stubRepo
		password string
		wantErr  error
	}{
		{
			name:     "valid credentials",
			repo:     &stubRepo{getUser: user},
			password: "correct",
		},
		{
			name:     "wrong password",
			repo:     &stubRepo{getUser: user},
			password: "wrong",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name:     "unknown login",
			repo:     &stubRepo{getUserErr: repository.ErrUserNotFound},
			password: "correct",
			wantErr:  ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.repo, Options{})
			got, err := svc.AuthenticateUser(context.Background(), "user", tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(1), got.ID)
			assert.Equal(t, model.RoleAdmin, got.Role)
		})
	}
}

func TestEnsureAdmin(t *testing.T) {
	repo := &stubRepo{ensureAdminID: 3}
	svc := NewService(repo, Options{})

	id, err := svc.EnsureAdmin(context.Background(), "Admin", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.Equal(t, "admin", repo.ensuredLogin)

	_, err = svc.EnsureAdmin(context.Background(), "", "pw")
	assert.Error(t, err)
}
