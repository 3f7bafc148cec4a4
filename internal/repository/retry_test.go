package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestWithRetry(t *testing.T) {
	r := &PostgresRepository{retryDelays: []time.Duration{time.Millisecond, time.Millisecond}}

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "success first try",
			errs:      []error{nil},
			wantCalls: 1,
		},
		{
			name:      "serialization failure is retried",
			errs:      []error{&pgconn.PgError{Code: pgerrcode.SerializationFailure}, nil},
			wantCalls: 2,
		},
		{
			name: "deadlock exhausts retries",
			errs: []error{
				&pgconn.PgError{Code: pgerrcode.DeadlockDetected},
				&pgconn.PgError{Code: pgerrcode.DeadlockDetected},
				&pgconn.PgError{Code: pgerrcode.DeadlockDetected},
			},
			wantCalls: 3,
			wantErr:   true,
		},
		{
			name:      "business error is not retried",
			errs:      []error{ErrInsufficientBalance},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "connection lost during commit is not retried",
			errs:      []error{commitError(errors.New("write: connection reset by peer")), nil},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "serialization failure on commit is retried",
			errs:      []error{commitError(&pgconn.PgError{Code: pgerrcode.SerializationFailure}), nil},
			wantCalls: 2,
		},
		{
			name:      "connection error is retried",
			errs:      []error{errors.New("dial tcp: connection refused"), nil},
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := r.withRetry(context.Background(), func() error {
				err := tt.errs[calls]
				calls++
				return err
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithRetry_StopsOnCancelledContext(t *testing.T) {
	r := &PostgresRepository{retryDelays: []time.Duration{time.Hour}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.withRetry(ctx, func() error {
		return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommitError(t *testing.T) {
	err := commitError(errors.New("read: connection reset by peer"))
	assert.ErrorIs(t, err, errCommitUnknown)
	assert.False(t, isRetryable(err))

	err = commitError(&pgconn.PgError{Code: pgerrcode.DeadlockDetected})
	assert.NotErrorIs(t, err, errCommitUnknown)
	assert.True(t, isRetryable(err))
}

func TestMergeLines(t *testing.T) {
	got := mergeLines([]PurchaseLine{
		{ProductID: 3, Quantity: 1},
		{ProductID: 1, Quantity: 2},
		{ProductID: 3, Quantity: 4},
	})

	assert.Equal(t, []PurchaseLine{
		{ProductID: 1, Quantity: 2},
		{ProductID: 3, Quantity: 5},
	}, got)
}
