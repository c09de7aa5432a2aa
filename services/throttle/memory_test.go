package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l := newMemoryLimiter(3, 15*time.Minute)
	l.nowFunc = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "jdoe")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
		require.NoError(t, l.Fail(ctx, "jdoe"))
	}

	tests := []struct {
		name    string
		key     string
		advance time.Duration
		reset   bool
		want    bool
	}{
		{name: "blocked after max attempts", key: "jdoe", want: false},
		{name: "other keys unaffected", key: "other", want: true},
		{name: "still blocked inside window", key: "jdoe", advance: 10 * time.Minute, want: false},
		{name: "allowed once the window expires", key: "jdoe", advance: 10 * time.Minute, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = now.Add(tt.advance)
			ok, err := l.Allow(ctx, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	t.Run("reset clears attempts", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.NoError(t, l.Fail(ctx, "jane"))
		}
		ok, _ := l.Allow(ctx, "jane")
		assert.False(t, ok)

		require.NoError(t, l.Reset(ctx, "jane"))
		ok, _ = l.Allow(ctx, "jane")
		assert.True(t, ok)
	})
}
