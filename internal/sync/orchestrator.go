package sync

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/seltzinger/airsync/internal/types"
)

// Direction of one sync step.
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
)

func (d Direction) String() string {
	if d == DirectionUp {
		return "up"
	}
	return "down"
}

// Step is one tick of an orchestrator: the direction it considered and
// the files that newly arrived on that side.
type Step struct {
	Direction Direction
	Arrivals  []types.FileInfo
}

type orchestratorMode int

const (
	modeUp orchestratorMode = iota
	modeDown
	modeBoth
)

type phase int

const (
	phaseUp phase = iota
	phaseDown
)

// Orchestrator produces an endless sequence of sync steps by driving
// one or two watchers over the session's directory pair.
//
// The up and bidirectional modes yield each step before its transfers
// run: the transfers of step N execute when Next is called for step
// N+1, so transfer time is charged to the call that advances past the
// step. The down-only mode instead transfers inline and yields the step
// afterwards. Once a transfer fails, the sequence is dead: every later
// Next returns the same error.
type Orchestrator struct {
	engine *Engine
	mode   orchestratorMode
	local  *Watcher
	remote *Watcher

	primed bool
	err    error

	// bidirectional state
	phase         phase
	processed     map[string]struct{}
	pendingUp     []types.FileInfo
	pendingDown   []types.FileInfo
	stashedRemote []types.FileInfo

	// up-only cursor
	pendingUpOnly []types.FileInfo
}

// NewUpOrchestrator watches the local directory and uploads arrivals.
func NewUpOrchestrator(engine *Engine) *Orchestrator {
	s := engine.Session()
	return &Orchestrator{
		engine: engine,
		mode:   modeUp,
		local:  NewLocalWatcher(s.LocalCatalog()),
	}
}

// NewDownOrchestrator watches the remote directory and downloads
// arrivals.
func NewDownOrchestrator(engine *Engine) *Orchestrator {
	s := engine.Session()
	return &Orchestrator{
		engine: engine,
		mode:   modeDown,
		remote: NewRemoteWatcher(s.RemoteCatalog(), s.Device),
	}
}

// NewBidirectionalOrchestrator watches both sides, alternating an up
// step and a down step per tick, local side first. Files moved in one
// direction are remembered by name so they are not bounced back.
func NewBidirectionalOrchestrator(engine *Engine) *Orchestrator {
	s := engine.Session()
	return &Orchestrator{
		engine:    engine,
		mode:      modeBoth,
		local:     NewLocalWatcher(s.LocalCatalog()),
		remote:    NewRemoteWatcher(s.RemoteCatalog(), s.Device),
		processed: make(map[string]struct{}),
	}
}

// Next advances the sequence by one step.
func (o *Orchestrator) Next(ctx context.Context) (Step, error) {
	if o.err != nil {
		return Step{}, o.err
	}
	step, err := o.next(ctx)
	if err != nil {
		o.err = err
		return Step{}, err
	}
	return step, nil
}

func (o *Orchestrator) next(ctx context.Context) (Step, error) {
	if !o.primed {
		if err := o.prime(ctx); err != nil {
			return Step{}, err
		}
	}
	switch o.mode {
	case modeUp:
		return o.nextUp(ctx)
	case modeDown:
		return o.nextDown(ctx)
	default:
		return o.nextBoth(ctx)
	}
}

// prime establishes both baselines without surfacing a step.
func (o *Orchestrator) prime(ctx context.Context) error {
	s := o.engine.Session()
	if o.local != nil {
		_, snapshot, err := o.local.Next(ctx)
		if err != nil {
			return err
		}
		logSyncReady(len(snapshot), s.LocalDir, s.RemoteDir)
	}
	if o.remote != nil {
		_, snapshot, err := o.remote.Next(ctx)
		if err != nil {
			return err
		}
		logSyncReady(len(snapshot), s.RemoteDir, s.LocalDir)
	}
	o.primed = true
	return nil
}

func (o *Orchestrator) nextUp(ctx context.Context) (Step, error) {
	s := o.engine.Session()
	if len(o.pendingUpOnly) > 0 {
		logSyncStart(DirectionUp, o.pendingUpOnly)
		if _, err := o.engine.UploadAll(ctx, o.pendingUpOnly); err != nil {
			return Step{}, err
		}
		logSyncReady(len(o.local.current), s.LocalDir, s.RemoteDir)
		o.pendingUpOnly = nil
	}
	arrivals, _, err := o.local.Next(ctx)
	if err != nil {
		return Step{}, err
	}
	o.pendingUpOnly = arrivals
	return Step{Direction: DirectionUp, Arrivals: arrivals}, nil
}

func (o *Orchestrator) nextDown(ctx context.Context) (Step, error) {
	s := o.engine.Session()
	arrivals, snapshot, err := o.remote.Next(ctx)
	if err != nil {
		return Step{}, err
	}
	if len(arrivals) > 0 {
		logSyncStart(DirectionDown, arrivals)
		if _, err := o.engine.DownloadAll(ctx, arrivals); err != nil {
			return Step{}, err
		}
		logSyncReady(len(snapshot), s.RemoteDir, s.LocalDir)
	}
	return Step{Direction: DirectionDown, Arrivals: arrivals}, nil
}

func (o *Orchestrator) nextBoth(ctx context.Context) (Step, error) {
	if o.phase == phaseUp {
		return o.bothUpStep(ctx)
	}
	return o.bothDownStep(ctx)
}

// bothUpStep settles the previous down step, pulls both watchers, and
// yields the next up step. The local watcher is always pulled first;
// its arrivals win ties against remote arrivals of the same name.
func (o *Orchestrator) bothUpStep(ctx context.Context) (Step, error) {
	s := o.engine.Session()
	if len(o.pendingDown) > 0 {
		o.markProcessed(o.pendingDown)
		logSyncStart(DirectionDown, o.pendingDown)
		if _, err := o.engine.DownloadAll(ctx, o.pendingDown); err != nil {
			return Step{}, err
		}
		logSyncReady(len(o.remote.current), s.RemoteDir, s.LocalDir)
		o.pendingDown = nil
	}

	localArrivals, _, err := o.local.Next(ctx)
	if err != nil {
		return Step{}, err
	}
	remoteArrivals, _, err := o.remote.Next(ctx)
	if err != nil {
		return Step{}, err
	}
	o.stashedRemote = remoteArrivals

	arrivals := o.withoutProcessed(localArrivals)
	o.pendingUp = arrivals
	o.phase = phaseDown
	return Step{Direction: DirectionUp, Arrivals: arrivals}, nil
}

// bothDownStep settles the up step yielded by the previous call, then
// yields the down step for the remote arrivals pulled alongside it.
// Remote arrivals are filtered after the up marking so an upload's echo
// in the remote listing is never bounced back down.
func (o *Orchestrator) bothDownStep(ctx context.Context) (Step, error) {
	s := o.engine.Session()
	if len(o.pendingUp) > 0 {
		o.markProcessed(o.pendingUp)
		logSyncStart(DirectionUp, o.pendingUp)
		if _, err := o.engine.UploadAll(ctx, o.pendingUp); err != nil {
			return Step{}, err
		}
		logSyncReady(len(o.local.current), s.LocalDir, s.RemoteDir)
		o.pendingUp = nil
	}

	arrivals := o.withoutProcessed(o.stashedRemote)
	o.stashedRemote = nil
	o.pendingDown = arrivals
	o.phase = phaseUp
	return Step{Direction: DirectionDown, Arrivals: arrivals}, nil
}

func (o *Orchestrator) markProcessed(files []types.FileInfo) {
	for _, f := range files {
		o.processed[f.Filename] = struct{}{}
	}
}

func (o *Orchestrator) withoutProcessed(files []types.FileInfo) []types.FileInfo {
	var kept []types.FileInfo
	for _, f := range files {
		if _, ok := o.processed[f.Filename]; !ok {
			kept = append(kept, f)
		}
	}
	return kept
}

func logSyncStart(direction Direction, files []types.FileInfo) {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Filename
	}
	log.WithFields(log.Fields{
		"direction": direction.String(),
		"count":     len(files),
		"files":     strings.Join(names, ", "),
	}).Info("syncing new arrivals")
}

func logSyncReady(existing int, from, to string) {
	log.WithFields(log.Fields{
		"from": from, "to": to, "existing": existing,
	}).Info("ready to sync new files")
}
