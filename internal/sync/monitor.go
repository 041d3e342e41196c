package sync

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/seltzinger/airsync/internal/utils"
)

var clock = clockwork.NewRealClock()

// Monitor runs one orchestrator on a background worker. Lifecycle is
// idle, running, idle again: starting spawns exactly one worker, Stop
// cancels it cooperatively at its next step boundary, and Join waits
// for it to exit. After Join the monitor may be started again.
//
// Stop is soft: the worker checks for it only between steps, so a file
// being transferred when Stop arrives is finished (or fails) first. A
// transfer failure kills the worker: there is no retry, and the error
// is returned from Join and held by Err until the next start.
//
// Run at most one Monitor per directory pair; nothing guards two
// workers racing over the same files.
type Monitor struct {
	engine *Engine

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func NewMonitor(engine *Engine) *Monitor {
	return &Monitor{engine: engine}
}

// SyncUp starts a worker uploading local arrivals.
func (m *Monitor) SyncUp() {
	m.start(NewUpOrchestrator(m.engine))
}

// SyncDown starts a worker downloading remote arrivals.
func (m *Monitor) SyncDown() {
	m.start(NewDownOrchestrator(m.engine))
}

// SyncBoth starts a worker syncing arrivals in both directions.
func (m *Monitor) SyncBoth() {
	m.start(NewBidirectionalOrchestrator(m.engine))
}

func (m *Monitor) start(orc *Orchestrator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		log.Warn("monitor already running, ignoring start")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.err = nil
	done := make(chan struct{})
	m.done = done
	go m.loop(ctx, orc, done)
}

func (m *Monitor) loop(ctx context.Context, orc *Orchestrator, done chan struct{}) {
	defer close(done)
	// Steps run on a detached context: Stop is observed here between
	// steps, never by an in-flight transfer.
	work := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			return
		}
		step, err := orc.Next(work)
		if err != nil {
			m.setErr(err)
			log.WithError(err).Error("sync worker stopped on transfer error")
			return
		}
		if len(step.Arrivals) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-clock.After(utils.MonitorIdleSleep):
			}
		}
	}
}

// Stop asks the worker to exit at its next step boundary. It does not
// wait; pair it with Join.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
}

// Join blocks until the worker exits and returns its error, nil after a
// clean stop. Without a prior start it returns immediately.
func (m *Monitor) Join() error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done

	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	return m.err
}

// Err reports the error that stopped the last worker, if any.
func (m *Monitor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Running reports whether a worker is currently alive.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

func (m *Monitor) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
