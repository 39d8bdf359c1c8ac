// internal/job/ratewindow.go
package job

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"consignment-api/internal/model"
)

const rateWindow = time.Hour

// rateKey identifies the rolling-window owner: the empresa when present,
// otherwise the token itself.
func rateKey(t model.Token) string {
	if hasValue(t.Empresa) {
		return "empresa:" + strings.TrimSpace(t.Empresa)
	}
	if t.ID == 0 {
		return "token:sem_id"
	}
	return fmt.Sprintf("token:%d", t.ID)
}

// rateGate enforces at most one batch start per key per rolling hour.
// Callers for the same key serialize on the key's mutex; different keys
// never block each other. Window state lives only in memory, so a restart
// resets every window.
type rateGate struct {
	now   func() time.Time
	sleep func(time.Duration)

	mu      sync.Mutex
	entries map[string]*rateEntry
}

type rateEntry struct {
	mu          sync.Mutex
	windowStart time.Time
}

func newRateGate() *rateGate {
	return &rateGate{
		now:     time.Now,
		sleep:   time.Sleep,
		entries: make(map[string]*rateEntry),
	}
}

// acquire blocks until a full window has elapsed since the key's previous
// window start, then records the new start. Returns how long it waited.
func (g *rateGate) acquire(key string) time.Duration {
	g.mu.Lock()
	entry, ok := g.entries[key]
	if !ok {
		entry = &rateEntry{}
		g.entries[key] = entry
	}
	g.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	var waited time.Duration
	if !entry.windowStart.IsZero() {
		if elapsed := g.now().Sub(entry.windowStart); elapsed < rateWindow {
			waited = rateWindow - elapsed
			g.sleep(waited)
		}
	}
	entry.windowStart = g.now()
	return waited
}
