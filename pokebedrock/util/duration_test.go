package util

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"10m":   10 * time.Minute,
		"2h":    2 * time.Hour,
		"1d12h": 36 * time.Hour,
		"1w":    7 * 24 * time.Hour,
		"1D2H":  26 * time.Hour,
	}
	for in, want := range tests {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	got, err := ParseDuration("1d12h")
	require.NoError(t, err)
	assert.EqualValues(t, 129600000, got.Milliseconds())
}

func TestParseDurationRejectsMissingUnit(t *testing.T) {
	for _, in := range []string{"", "10", "abc", "5s"} {
		_, err := ParseDuration(in)
		assert.ErrorIs(t, err, ErrInvalidDuration, in)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1h", FormatDuration(time.Hour))
	assert.Equal(t, "1d 12h", FormatDuration(36*time.Hour))
	assert.Equal(t, "1d 2h 3m 4s", FormatDuration(26*time.Hour+3*time.Minute+4*time.Second))
	assert.Equal(t, "0s", FormatDuration(300*time.Millisecond))
}

func TestDurationText(t *testing.T) {
	var v struct {
		Interval Duration
	}
	require.NoError(t, json.Unmarshal([]byte(`{"Interval":"30s"}`), &v))
	assert.Equal(t, 30*time.Second, v.Interval.Std())

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Interval":"30s"}`, string(b))
}
