package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowReportsUTC(t *testing.T) {
	t.Parallel()

	got := New().Now()
	require.Equal(t, time.UTC, got.Location())
	require.WithinDuration(t, time.Now().UTC(), got, time.Second)
}

func TestNowNeverGoesBackwards(t *testing.T) {
	t.Parallel()

	clk := New()
	first := clk.Now()
	second := clk.Now()
	require.False(t, second.Before(first))
}
