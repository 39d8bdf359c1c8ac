package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestTracker(start time.Time) (*Tracker, *time.Time) {
	now := start
	t := NewTracker("localhost", 3000)
	t.now = func() time.Time { return now }
	return t, &now
}

func TestFormatDuration(t *testing.T) {
	require.Equal(t, "00:00:00:0000", formatDuration(0))
	require.Equal(t, "00:00:00:0000", formatDuration(-time.Second))
	require.Equal(t, "00:00:01:0250", formatDuration(1250*time.Millisecond))
	require.Equal(t, "01:02:03:0004", formatDuration(time.Hour+2*time.Minute+3*time.Second+4*time.Millisecond))
}

func TestTrackerIdleStatus(t *testing.T) {
	tr, _ := newTestTracker(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	view := tr.Status()
	require.Nil(t, view.CurrentCycle)
	require.Nil(t, view.LastCycle)
	require.Nil(t, view.LastError)
	require.Equal(t, "2025-06-01 10:00:00", view.ServerTime)
	require.Equal(t, "localhost", view.StatusServer.Host)
	require.Equal(t, "3000", view.StatusServer.Port)
}

func TestTrackerLiveCycleView(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	tr, now := newTestTracker(start)

	tr.StartCycle("manual")
	tr.IncrementWindow()
	tr.IncrementWindow()
	*now = start.Add(90 * time.Second)

	view := tr.Status()
	require.NotNil(t, view.CurrentCycle)
	require.Equal(t, "2025-06-01 10:00:00", view.CurrentCycle.StartedAt)
	require.Empty(t, view.CurrentCycle.CompletedAt)
	require.Equal(t, int64(90000), view.CurrentCycle.DurationMs)
	require.Equal(t, "00:01:30:0000", view.CurrentCycle.DurationHHMMSS)
	require.Equal(t, 2, view.CurrentCycle.TotalWindows)
	require.False(t, view.CurrentCycle.HadAPIErrors)
}

func TestTrackerRecordsErrorsDuringCycle(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	tr, now := newTestTracker(start)

	tr.StartCycle("scheduler")
	tr.RecordAPIError("/private-consignment/consult", 503, "API1 retornou status 503")
	*now = start.Add(time.Second)
	tr.RecordDBError("sql:update_client_by_cpf", 0, "")

	view := tr.Status()
	require.Equal(t, 1, view.APIErrors.TotalCount)
	require.True(t, view.APIErrors.HadErrorsNow)
	require.Equal(t, "/private-consignment/consult", view.APIErrors.Last.Route)
	require.Equal(t, 503, view.APIErrors.Last.Status)

	// Zero status and empty message fall back to defaults
	require.Equal(t, 500, view.DBErrors.Last.Status)
	require.Equal(t, "Erro de banco", view.DBErrors.Last.Message)

	// Last error across classes is the DB one, recorded a second later
	require.NotNil(t, view.LastError)
	require.Equal(t, "2025-06-01 10:00:01", view.LastError.At)
	require.Equal(t, "Erro de banco", view.LastError.Message)

	require.Equal(t, 1, view.CurrentCycle.APIErrors)
	require.Equal(t, 1, view.CurrentCycle.DBErrors)
	require.True(t, view.CurrentCycle.HadAPIErrors)
	require.True(t, view.CurrentCycle.HadDBErrors)
}

func TestTrackerCompleteCycleFreezesView(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	tr, now := newTestTracker(start)

	tr.StartCycle("manual")
	tr.IncrementWindow()
	tr.RecordAPIError("/private-consignment/consult", 500, "boom")
	*now = start.Add(2*time.Minute + 500*time.Millisecond)
	tr.CompleteCycle()

	view := tr.Status()
	require.Nil(t, view.CurrentCycle)
	require.NotNil(t, view.LastCycle)
	require.Equal(t, "2025-06-01 10:00:00", view.LastCycle.StartedAt)
	require.Equal(t, "2025-06-01 10:02:00", view.LastCycle.CompletedAt)
	require.Equal(t, "2025-06-01", view.LastCycle.Period.Start)
	require.Equal(t, int64(120500), view.LastCycle.DurationMs)
	require.Equal(t, "00:02:00:0500", view.LastCycle.DurationHHMMSS)
	require.Equal(t, 1, view.LastCycle.TotalWindows)
	require.Equal(t, 1, view.LastCycle.APIErrors)
	require.True(t, view.LastCycle.HadAPIErrors)

	require.Equal(t, 1, view.APIErrors.LastCycleCount)
	require.False(t, view.APIErrors.HadErrorsNow)

	// Windows and errors after completion touch nothing
	tr.IncrementWindow()
	require.Equal(t, 1, tr.Status().LastCycle.TotalWindows)
}

func TestTrackerStartCycleResetsLastCycleCounts(t *testing.T) {
	tr, _ := newTestTracker(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	tr.StartCycle("manual")
	tr.RecordAPIError("r", 500, "first")
	tr.CompleteCycle()
	require.Equal(t, 1, tr.Status().APIErrors.LastCycleCount)

	tr.StartCycle("manual")
	view := tr.Status()
	require.Equal(t, 0, view.APIErrors.LastCycleCount)
	require.False(t, view.APIErrors.HadErrorsNow)
	// The running total survives the reset
	require.Equal(t, 1, view.APIErrors.TotalCount)
	require.Equal(t, "first", view.APIErrors.Last.Message)
}

func TestTrackerErrorOutsideCycle(t *testing.T) {
	tr, _ := newTestTracker(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	tr.RecordAPIError("r", 500, "out of band")

	view := tr.Status()
	require.Equal(t, 1, view.APIErrors.TotalCount)
	require.False(t, view.APIErrors.HadErrorsNow)
	require.NotNil(t, view.LastError)
}

func TestTrackerCompleteWithoutStartIsNoop(t *testing.T) {
	tr, _ := newTestTracker(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	tr.CompleteCycle()
	require.Nil(t, tr.Status().LastCycle)
}
