// Package repository содержит реализацию доступа к данным маркетплейса в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrProductNotFound возвращается, если товар не найден или снят с продажи.
	ErrProductNotFound = errors.New("product not found")
	// ErrCategoryNotFound возвращается, если категория не найдена.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryExists возвращается при дублировании slug категории.
	ErrCategoryExists = errors.New("category already exists")
	// ErrKeyNotFound возвращается, если ключ товара не найден или уже продан.
	ErrKeyNotFound = errors.New("product key not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInsufficientBalance возвращается при попытке покупки на сумму, превышающую баланс.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientStock возвращается, если товара или ключей недостаточно для заказа.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrTotalMismatch возвращается, если переданная сумма заказа не совпадает с текущими ценами.
	ErrTotalMismatch = errors.New("order total does not match current prices")
	// ErrTransactionNotFound возвращается, если операция не найдена.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrTransactionNotPending возвращается при повторной обработке пополнения.
	ErrTransactionNotPending = errors.New("transaction already processed")
	// ErrTransactionMismatch возвращается, если данные решения не совпадают с сохранённой операцией.
	ErrTransactionMismatch = errors.New("transaction details do not match")
	// ErrGiftCardNotFound возвращается для неизвестного кода подарочной карты.
	ErrGiftCardNotFound = errors.New("gift card not found")
	// ErrGiftCardUsed возвращается при повторном погашении подарочной карты.
	ErrGiftCardUsed = errors.New("gift card already used")
	// ErrGiftCardExists возвращается при создании карты с существующим кодом.
	ErrGiftCardExists = errors.New("gift card code already exists")
	// ErrPaymentMethodExists возвращается при дублировании кода способа оплаты.
	ErrPaymentMethodExists = errors.New("payment method already exists")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool        *pgxpool.Pool
	retryDelays []time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{
		pool:        pool,
		retryDelays: []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second},
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при конфликте сериализации, дедлоке или обрыве соединения
// до фиксации транзакции.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(r.retryDelays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(r.retryDelays) {
			break
		}

		timer := time.NewTimer(r.retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}

// errCommitUnknown помечает обрыв связи во время COMMIT: сервер мог успеть зафиксировать
// транзакцию, поэтому повтор недопустим.
var errCommitUnknown = errors.New("commit outcome unknown")

func isRetryable(err error) bool {
	if errors.Is(err, errCommitUnknown) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

// inTx выполняет fn в одной транзакции. Любая ошибка fn откатывает все изменения.
func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return commitError(err)
		}
		return nil
	})
}

// commitError классифицирует ошибку COMMIT. Ответ сервера (например, конфликт сериализации)
// означает откат, и транзакцию можно повторить; любая другая ошибка оставляет исход неизвестным.
func commitError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("commit tx: %w", err)
	}
	return fmt.Errorf("commit tx: %w: %w", errCommitUnknown, err)
}

// Ping проверяет доступность базы данных.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
