package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatDurationHHMMSS(t *testing.T) {
	require.Equal(t, "00:00:00", formatDurationHHMMSS(0))
	require.Equal(t, "00:00:00", formatDurationHHMMSS(-time.Minute))
	require.Equal(t, "00:00:59", formatDurationHHMMSS(59*time.Second))
	require.Equal(t, "01:01:05", formatDurationHHMMSS(time.Hour+time.Minute+5*time.Second))
	require.Equal(t, "25:00:00", formatDurationHHMMSS(25*time.Hour))
}

func TestBuildProgressBar(t *testing.T) {
	require.Equal(t, "[##########----------] 5/10 (50%)", buildProgressBar(5, 10, 20))
	require.Equal(t, "[--------------------] 0/10 (0%)", buildProgressBar(0, 10, 20))
	require.Equal(t, "[####################] 10/10 (100%)", buildProgressBar(10, 10, 20))
	// Current clamps into [0, total]
	require.Equal(t, "[####################] 10/10 (100%)", buildProgressBar(15, 10, 20))
}

func TestCompactProgressTextEmptyBatch(t *testing.T) {
	require.Equal(t, "[----------------------] 0/0 (100%)", compactProgressText(3, 0))
}

func TestEstimateETAText(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	require.Equal(t, "00:00:00", estimateETAText(0, 0, start, start))
	require.Equal(t, "--:--:--", estimateETAText(0, 10, start, start))
	require.Equal(t, "00:00:00", estimateETAText(10, 10, start, start.Add(time.Minute)))

	// 5 of 10 done in 5 minutes: 1 minute each, 5 remaining
	now := start.Add(5 * time.Minute)
	require.Equal(t, "00:05:00", estimateETAText(5, 10, start, now))
}

func TestShouldLogProgress(t *testing.T) {
	require.True(t, shouldLogProgress(-1, 0, 0, 10))   // first line
	require.True(t, shouldLogProgress(50, 100, 10, 10)) // completion
	require.True(t, shouldLogProgress(10, 15, 3, 20))  // 5% step
	require.False(t, shouldLogProgress(10, 12, 3, 20)) // below the step
	require.True(t, shouldLogProgress(0, 0, 0, 0))     // empty batch logs once
	require.False(t, shouldLogProgress(0, 0, 1, 0))
}

func TestProgressPercent(t *testing.T) {
	require.Equal(t, 0, progressPercent(0, 10))
	require.Equal(t, 50, progressPercent(5, 10))
	require.Equal(t, 100, progressPercent(10, 10))
	require.Equal(t, 100, progressPercent(12, 10))
	require.Equal(t, 0, progressPercent(-3, 10))
}
