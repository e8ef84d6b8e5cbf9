package watch

import (
	"sync"
	"time"
)

// debouncer calls fn once the triggers stop for d.
type debouncer struct {
	mu    sync.Mutex
	d     time.Duration
	fn    func()
	timer *time.Timer
}

func debounce(d time.Duration, fn func()) *debouncer {
	return &debouncer{d: d, fn: fn}
}

// Fire restarts the quiet period.
func (db *debouncer) Fire() {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.timer != nil {
		db.timer.Stop()
	}
	db.timer = time.AfterFunc(db.d, db.fn)
}

// Stop cancels a pending call.
func (db *debouncer) Stop() {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.timer != nil {
		db.timer.Stop()
		db.timer = nil
	}
}
