package validation

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type topUpRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Method string          `json:"method" validate:"required,max=32"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name       string
		req        topUpRequest
		wantFields []string
	}{
		{
			name: "valid",
			req:  topUpRequest{Amount: decimal.RequireFromString("20"), Method: "D17"},
		},
		{
			name:       "zero amount",
			req:        topUpRequest{Amount: decimal.Zero, Method: "D17"},
			wantFields: []string{"amount"},
		},
		{
			name:       "missing method and negative amount",
			req:        topUpRequest{Amount: decimal.RequireFromString("-1")},
			wantFields: []string{"amount", "method"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.req)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)

			var verr *Error
			require.ErrorAs(t, err, &verr)
			for _, f := range tt.wantFields {
				assert.Contains(t, verr.Fields, f)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var req topUpRequest
	err := DecodeJSON(strings.NewReader(`{"amount": 12.5, "method": "FLOUCI"}`), &req)
	require.NoError(t, err)
	assert.True(t, req.Amount.Equal(decimal.RequireFromString("12.5")))

	err = DecodeJSON(strings.NewReader(`{"amount": 1, "method": "X", "extra": 1}`), &req)
	assert.ErrorIs(t, err, ErrInvalid)

	err = DecodeJSON(strings.NewReader(`not json`), &req)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNormalizeGiftCardCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		want    string
		wantErr bool
	}{
		{name: "already canonical", code: "KWARET-TEST-50", want: "KWARET-TEST-50"},
		{name: "lower case with spaces", code: "  kwaret-test -50 ", want: "KWARET-TEST-50"},
		{name: "empty", code: "   ", wantErr: true},
		{name: "bad characters", code: "KWARET_TEST", wantErr: true},
		{name: "too long", code: strings.Repeat("A", 65), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeGiftCardCode(tt.code)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeKeys(t *testing.T) {
	got := NormalizeKeys([]string{" AAAA-1 ", "", "BBBB-2", "AAAA-1", "   "})
	assert.Equal(t, []string{"AAAA-1", "BBBB-2"}, got)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "gift-cards", Slugify("Gift Cards"))
	assert.Equal(t, "steam-wallet-50", Slugify("  Steam   Wallet (50) "))
	assert.Equal(t, "", Slugify("!!!"))
}
