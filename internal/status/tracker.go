// internal/status/tracker.go
package status

import (
	"fmt"
	"sync"
	"time"

	"consignment-api/internal/metrics"
)

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func formatDateTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatDuration renders HH:MM:SS:MMMM with zero-padded milliseconds.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	millis := int(d/time.Millisecond) % 1000
	return fmt.Sprintf("%02d:%02d:%02d:%04d", total/3600, (total%3600)/60, total%60, millis)
}

// ErrorItem is the most recent error of a class.
type ErrorItem struct {
	At      string `json:"at"`
	Route   string `json:"route"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// ErrorCounters is the rolling view of one error class. Totals persist
// across cycles; the last-cycle count resets when a new cycle starts.
type ErrorCounters struct {
	TotalCount     int        `json:"total_count"`
	LastCycleCount int        `json:"last_cycle_count"`
	Last           *ErrorItem `json:"last"`
	HadErrorsNow   bool       `json:"had_errors_in_current_cycle"`
}

// CycleView describes a finished or in-flight cycle.
type CycleView struct {
	StartedAt      string `json:"started_at"`
	CompletedAt    string `json:"completed_at,omitempty"`
	Period         Period `json:"period"`
	DurationMs     int64  `json:"duration_ms"`
	DurationHHMMSS string `json:"duration_hhmmssmmmm"`
	APIErrors      int    `json:"api_errors"`
	DBErrors       int    `json:"db_errors"`
	TotalWindows   int    `json:"total_windows"`
	HadAPIErrors   bool   `json:"had_api_errors"`
	HadDBErrors    bool   `json:"had_db_errors"`
}

type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// LastError is the most recent error of any class.
type LastError struct {
	At      string `json:"at"`
	Message string `json:"message"`
}

// View is the full inspection payload.
type View struct {
	CurrentCycle *CycleView    `json:"current_cycle"`
	LastCycle    *CycleView    `json:"last_cycle"`
	APIErrors    ErrorCounters `json:"api_errors"`
	DBErrors     ErrorCounters `json:"db_errors"`
	LastError    *LastError    `json:"last_error"`
	ServerTime   string        `json:"server_time"`
	StatusServer ServerInfo    `json:"status_server"`
}

type ServerInfo struct {
	Host string `json:"host"`
	Port string `json:"port"`
}

type currentCycle struct {
	source       string
	startedAt    time.Time
	apiErrors    int
	dbErrors     int
	totalWindows int
}

// Tracker keeps live cycle state and rolling error counters. Reads never
// block a running cycle beyond the mutex hold of a snapshot copy.
type Tracker struct {
	mu sync.RWMutex

	host string
	port string

	current   *currentCycle
	lastCycle *CycleView

	apiErrors ErrorCounters
	dbErrors  ErrorCounters
	lastError *LastError

	now func() time.Time
}

func NewTracker(host string, port int) *Tracker {
	return &Tracker{
		host: host,
		port: fmt.Sprintf("%d", port),
		now:  time.Now,
	}
}

// StartCycle opens a live cycle view and resets the last-cycle error counts.
func (t *Tracker) StartCycle(source string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if source == "" {
		source = "unknown"
	}
	t.current = &currentCycle{source: source, startedAt: t.now()}
	t.apiErrors.LastCycleCount = 0
	t.apiErrors.HadErrorsNow = false
	t.dbErrors.LastCycleCount = 0
	t.dbErrors.HadErrorsNow = false
}

// IncrementWindow counts one rate window started in the current cycle.
func (t *Tracker) IncrementWindow() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		t.current.totalWindows++
	}
}

// RecordAPIError notes a provider API failure.
func (t *Tracker) RecordAPIError(route string, status int, message string) {
	metrics.APIErrors.Inc()
	t.record(&t.apiErrors, route, status, message, "Erro de API")
}

// RecordDBError notes a store failure.
func (t *Tracker) RecordDBError(route string, status int, message string) {
	metrics.DBErrors.Inc()
	t.record(&t.dbErrors, route, status, message, "Erro de banco")
}

func (t *Tracker) record(counters *ErrorCounters, route string, status int, message, fallback string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if route == "" {
		route = "unknown"
	}
	if status <= 0 {
		status = 500
	}
	if message == "" {
		message = fallback
	}

	item := &ErrorItem{
		At:      formatDateTime(now),
		Route:   route,
		Status:  status,
		Message: message,
	}
	counters.TotalCount++
	counters.Last = item
	counters.HadErrorsNow = t.current != nil
	if t.current != nil {
		if counters == &t.apiErrors {
			t.current.apiErrors++
		} else {
			t.current.dbErrors++
		}
	}
	t.lastError = &LastError{At: item.At, Message: item.Message}
}

// CompleteCycle freezes the current cycle into the last-cycle view.
func (t *Tracker) CompleteCycle() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return
	}

	completedAt := t.now()
	duration := completedAt.Sub(t.current.startedAt)
	t.lastCycle = &CycleView{
		StartedAt:      formatDateTime(t.current.startedAt),
		CompletedAt:    formatDateTime(completedAt),
		Period:         Period{Start: formatDate(t.current.startedAt), End: formatDate(completedAt)},
		DurationMs:     duration.Milliseconds(),
		DurationHHMMSS: formatDuration(duration),
		APIErrors:      t.current.apiErrors,
		DBErrors:       t.current.dbErrors,
		TotalWindows:   t.current.totalWindows,
		HadAPIErrors:   t.current.apiErrors > 0,
		HadDBErrors:    t.current.dbErrors > 0,
	}

	t.apiErrors.LastCycleCount = t.current.apiErrors
	t.dbErrors.LastCycleCount = t.current.dbErrors
	t.apiErrors.HadErrorsNow = false
	t.dbErrors.HadErrorsNow = false
	t.current = nil
}

// Status returns a point-in-time copy of everything the inspection surface
// serves, including a live view of the in-flight cycle when there is one.
func (t *Tracker) Status() View {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	view := View{
		LastCycle:    t.lastCycle,
		APIErrors:    t.apiErrors,
		DBErrors:     t.dbErrors,
		LastError:    t.lastError,
		ServerTime:   formatDateTime(now),
		StatusServer: ServerInfo{Host: t.host, Port: t.port},
	}

	if t.current != nil {
		duration := now.Sub(t.current.startedAt)
		view.CurrentCycle = &CycleView{
			StartedAt:      formatDateTime(t.current.startedAt),
			Period:         Period{Start: formatDate(t.current.startedAt), End: formatDate(now)},
			DurationMs:     duration.Milliseconds(),
			DurationHHMMSS: formatDuration(duration),
			APIErrors:      t.current.apiErrors,
			DBErrors:       t.current.dbErrors,
			TotalWindows:   t.current.totalWindows,
			HadAPIErrors:   t.current.apiErrors > 0,
			HadDBErrors:    t.current.dbErrors > 0,
		}
	}
	return view
}
