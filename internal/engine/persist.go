package engine

import (
	"sync"
	"time"

	"github.com/quadflow/quadflow/internal/logging"
	"github.com/quadflow/quadflow/internal/store"
)

// persister debounces snapshot writes: rapid successive state changes
// coalesce into one write after a quiet window. Writes are last-write-wins
// and best-effort; a failure is logged and never blocks the event path.
type persister struct {
	store *store.Store
	log   *logging.Logger
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func() (runID, status string, payload []byte, ok bool)
}

func newPersister(st *store.Store, log *logging.Logger, delay time.Duration) *persister {
	return &persister{store: st, log: log, delay: delay}
}

// request schedules a snapshot write. snapshotFn is invoked when the timer
// fires so the freshest state wins.
func (p *persister) request(snapshotFn func() (string, string, []byte, bool)) {
	if p == nil || p.store == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = snapshotFn
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.delay, p.flush)
}

// flush writes the pending snapshot, if any.
func (p *persister) flush() {
	p.mu.Lock()
	fn := p.pending
	p.pending = nil
	p.mu.Unlock()
	if fn == nil {
		return
	}
	runID, status, payload, ok := fn()
	if !ok {
		return
	}
	if err := p.store.SaveSnapshot(runID, status, payload); err != nil {
		p.log.Warn("snapshot write failed", "run_id", runID, "error", err)
	}
}

// stop cancels any scheduled write and flushes the pending one.
func (p *persister) stop() {
	if p == nil || p.store == nil {
		return
	}
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.mu.Unlock()
	p.flush()
}
