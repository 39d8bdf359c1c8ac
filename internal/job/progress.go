// internal/job/progress.go
package job

import (
	"fmt"
	"strings"
	"time"
)

// formatDurationHHMMSS renders a duration as HH:MM:SS, clamping negatives.
func formatDurationHHMMSS(d time.Duration) string {
	total := int(d / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func progressPercent(current, total int) int {
	if total <= 0 {
		total = 1
	}
	clamped := min(max(current, 0), total)
	return int(float64(clamped)/float64(total)*100 + 0.5)
}

// buildProgressBar renders a compact [####----] current/total (percent%)
// bar for the per-token progress log lines.
func buildProgressBar(current, total, width int) string {
	safeTotal := total
	if safeTotal <= 0 {
		safeTotal = 1
	}
	clamped := min(max(current, 0), safeTotal)
	ratio := float64(clamped) / float64(safeTotal)
	filled := int(ratio*float64(width) + 0.5)
	percent := int(ratio*100 + 0.5)

	return fmt.Sprintf("[%s%s] %d/%d (%d%%)",
		strings.Repeat("#", filled), strings.Repeat("-", width-filled),
		clamped, safeTotal, percent)
}

func compactProgressText(current, total int) string {
	const width = 22
	if total <= 0 {
		return fmt.Sprintf("[%s] 0/0 (100%%)", strings.Repeat("-", width))
	}
	return buildProgressBar(current, total, width)
}

// estimateETAText projects the remaining time from the running average per
// client. Before the first client completes there is nothing to project.
func estimateETAText(current, total int, startedAt, now time.Time) string {
	if total <= 0 {
		return "00:00:00"
	}
	safeCurrent := min(max(current, 0), total)
	if safeCurrent <= 0 {
		return "--:--:--"
	}
	remaining := total - safeCurrent
	if remaining <= 0 {
		return "00:00:00"
	}

	elapsed := now.Sub(startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	perClient := elapsed / time.Duration(safeCurrent)
	return formatDurationHHMMSS(perClient * time.Duration(remaining))
}

// shouldLogProgress throttles progress lines to the start, the end, and
// every 5% step in between.
func shouldLogProgress(lastPercent, currentPercent, current, total int) bool {
	if total <= 0 {
		return current == 0
	}
	if current == 0 || current == total {
		return true
	}
	if lastPercent < 0 {
		return true
	}
	return currentPercent-lastPercent >= 5
}
