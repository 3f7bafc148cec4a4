package repository

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_SeedPaymentMethods(t *testing.T) {
	raw, err := fs.ReadFile(migrationsFS, "migrations/00002_payment_methods.sql")
	require.NoError(t, err)

	for _, code := range []string{"'D17'", "'FLOUCI'", "'BANK_TRANSFER'"} {
		assert.Contains(t, string(raw), code)
	}
	assert.Contains(t, string(raw), "ON CONFLICT (code) DO NOTHING")
}

func TestMigrations_FreshInstallHasActiveMethods(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	// newTestRepository очищает таблицы, поэтому seed применяется повторно вручную.
	raw, err := fs.ReadFile(migrationsFS, "migrations/00002_payment_methods.sql")
	require.NoError(t, err)
	up, _, found := strings.Cut(string(raw), "-- +goose Down")
	require.True(t, found)
	_, err = repo.pool.Exec(ctx, up)
	require.NoError(t, err)

	methods, err := repo.ListPaymentMethods(ctx, true)
	require.NoError(t, err)

	codes := make([]string, 0, len(methods))
	for _, m := range methods {
		codes = append(codes, m.Code)
	}
	assert.ElementsMatch(t, []string{"D17", "FLOUCI", "BANK_TRANSFER"}, codes)
}
