package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{name: "date", input: `"2024-02-29"`, want: NewDate(2024, time.February, 29)},
		{name: "null", input: `null`},
		{name: "empty", input: `""`},
		{name: "datetime", input: `"2024-02-29T10:00:00Z"`, wantErr: true},
		{name: "invalid day", input: `"2023-02-29"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(d), "got %s", d)
		})
	}

	data, err := json.Marshal(struct {
		Set   Date `json:"set"`
		Unset Date `json:"unset"`
	}{Set: NewDate(2024, time.March, 5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"set":"2024-03-05","unset":null}`, string(data))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, time.May, 1, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, "2024-05-01", d.String())

	require.NoError(t, d.Scan([]byte("2024-06-02T00:00:00Z")))
	assert.Equal(t, "2024-06-02", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
}

func TestToday(t *testing.T) {
	defer func() { NowFunc = time.Now }()
	NowFunc = func() time.Time { return time.Date(2024, time.December, 31, 18, 30, 0, 0, time.UTC) }

	today := Today()
	assert.Equal(t, "2024-12-31", today.String())
	assert.Equal(t, "2024-12", today.Period())
	assert.True(t, today.After(NewDate(2024, time.December, 30)))
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"0", "IDR", "IDR 0"},
		{"950", "IDR", "IDR 950"},
		{"1250000", "IDR", "IDR 1.250.000"},
		{"-300000", "", "-300.000"},
		{"1000.6", "Rp", "Rp 1.001"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(decimal.RequireFromString(tt.amount), tt.currency))
		})
	}
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Kadek Ayu", CleanString("  Kadek Ayu \t"))
	assert.Equal(t, "ibu@test.id", CleanString(" IBU@test.id", true))
	assert.Equal(t, "", CleanString("   "))
}
