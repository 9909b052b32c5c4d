package money_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/driver-payroll/money"
)

func TestRound2_HalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.345", "12.35"},
		{"10.005", "10.01"},
		{"-0.005", "-0.01"},
		{"-12.345", "-12.35"},
		{"0.004", "0"},
		{"3.192", "3.19"},
		{"10.47375", "10.47"},
		{"2.675", "2.68"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := money.Round2(decimal.RequireFromString(tt.in))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestRound2_IsNotBankersRounding(t *testing.T) {
	// 0.125 is where half-to-even (0.12) and half-away-from-zero (0.13) differ.
	in := decimal.RequireFromString("0.125")
	assert.Equal(t, "0.13", money.Round2(in).StringFixed(2))
	assert.Equal(t, "0.12", in.RoundBank(2).StringFixed(2))
}

func TestSum_DoesNotRound(t *testing.T) {
	total := money.Sum(money.MustParse("0.333"), money.MustParse("0.333"), money.MustParse("0.333"))
	assert.True(t, total.Value.Equal(decimal.RequireFromString("0.999")))
	assert.Equal(t, "1.00", total.Round2().String())
}

func TestAmount_String_AlwaysTwoDecimals(t *testing.T) {
	assert.Equal(t, "65.00", money.NewFromInt(65).String())
	assert.Equal(t, "0.00", money.Zero.String())
	assert.Equal(t, "-1.50", money.New(-1.5).String())
}

func TestAmount_JSON(t *testing.T) {
	data, err := json.Marshal(money.MustParse("36.79"))
	require.NoError(t, err)
	assert.Equal(t, `"36.79"`, string(data))

	var fromString money.Amount
	require.NoError(t, json.Unmarshal([]byte(`"12.50"`), &fromString))
	assert.True(t, fromString.Equal(money.MustParse("12.5")))

	var fromNumber money.Amount
	require.NoError(t, json.Unmarshal([]byte(`12.5`), &fromNumber))
	assert.True(t, fromNumber.Equal(money.MustParse("12.5")))

	var bad money.Amount
	assert.Error(t, json.Unmarshal([]byte(`"twelve"`), &bad))
}

func TestParse_Invalid(t *testing.T) {
	_, err := money.Parse("abc")
	assert.Error(t, err)
	assert.Panics(t, func() { money.MustParse("abc") })
}
