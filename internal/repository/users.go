package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
)

const userColumns = `id, login, password_hash, role, balance, cashback, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &role, &u.Balance, &u.Cashback, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

// CreateUser создаёт нового пользователя с указанной ролью.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte, role model.Role) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash, role) VALUES ($1, $2, $3) RETURNING id`,
		login, passwordHash, string(role),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// EnsureAdmin создаёт администратора с указанным логином либо повышает существующего пользователя до администратора.
func (r *PostgresRepository) EnsureAdmin(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash, role) VALUES ($1, $2, $3)
		 ON CONFLICT (login) DO UPDATE SET role = EXCLUDED.role
		 RETURNING id`,
		login, passwordHash, string(model.RoleAdmin),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure admin: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE login = $1`,
		login,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetBalance возвращает текущий баланс и накопленный кэшбэк пользователя.
func (r *PostgresRepository) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, decimal.Decimal, error) {
	var balance, cashback decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT balance, cashback FROM users WHERE id = $1`,
		userID,
	).Scan(&balance, &cashback)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, decimal.Zero, fmt.Errorf("get balance: %w", err)
	}
	return balance, cashback, nil
}

// ListUsers возвращает пользователей в порядке регистрации.
func (r *PostgresRepository) ListUsers(ctx context.Context, limit, offset int) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

// SetUserRole меняет роль пользователя.
func (r *PostgresRepository) SetUserRole(ctx context.Context, userID int64, role model.Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role = $2 WHERE id = $1`,
		userID, string(role),
	)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
