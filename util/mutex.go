package util

import (
	gomath "math"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/WindLX/fly-ruler/log"
)

// LoggingMutex wraps sync.Mutex to report long lock waits and long lock
// holds, sampling CPU usage and a callstack when a wait exceeds 10 seconds.
// Intended for the handful of long-lived locks a live daemon can't afford
// to deadlock on silently (core.Core's plane table).
//
// Grounded on _examples/mmp-vice/util/sync.go's LoggingMutex, trimmed of
// its global held-mutex registry (this daemon has one instance of
// interest, core.Core.mu, not an app-wide pool worth tracking centrally).
type LoggingMutex struct {
	sync.Mutex
	acq      time.Time
	acqStack log.Stack
}

// Lock acquires the mutex, logging (and, past 10s, sampling CPU and the
// holder's stack) if the wait is unusually long.
func (l *LoggingMutex) Lock(lg *log.Logger) {
	tryTime := time.Now()

	if !l.Mutex.TryLock() {
		locked := make(chan struct{}, 1)
		go func() {
			l.Mutex.Lock()
			locked <- struct{}{}
		}()

	loop:
		for {
			select {
			case <-locked:
				break loop
			case <-time.After(10 * time.Second):
				var m runtime.MemStats
				runtime.ReadMemStats(&m)
				usage, err := cpu.Percent(time.Second, false)
				pct := 0.0
				if err == nil && len(usage) > 0 {
					pct = usage[0]
				}
				lg.Errorf("unable to acquire mutex after 10s: cpu=%d%% alloc=%dMB sys=%dMB goroutines=%d",
					int(gomath.Round(pct)), m.Alloc/(1024*1024), m.Sys/(1024*1024), runtime.NumGoroutine())
				lg.Errorf("held since stack: %s", strings.Join(l.acqStack.Strings(), " | "))
			}
		}
	}

	l.acq = time.Now()
	l.acqStack = log.Callstack(l.acqStack)
	if w := l.acq.Sub(tryTime); w > time.Second {
		lg.Warnf("long wait to acquire mutex: %s", w)
	}
}

// Unlock releases the mutex, warning if it was held for over a second.
func (l *LoggingMutex) Unlock(lg *log.Logger) {
	if d := time.Since(l.acq); d > time.Second {
		lg.Warnf("mutex held for %s", d)
	}
	l.acq = time.Time{}
	l.acqStack = nil
	l.Mutex.Unlock()
}
