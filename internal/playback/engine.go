package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mixnote/mixnote/internal/model"
)

// ErrUnplayable is returned by Load when the device rejects the file.
var ErrUnplayable = errors.New("recording is not playable")

// State is an immutable snapshot of the transport. Subscribers receive a
// fresh copy whenever anything observable changes.
type State struct {
	RecordingID     uint
	Loaded          bool
	Playing         bool
	PositionSeconds float64
	DurationSeconds float64
}

// Engine owns the transport state machine: at most one loaded recording,
// play/pause/seek on top of a Device, and a position poller that runs only
// while something is loaded. Device events and poll ticks are folded into a
// single goroutine so state transitions never race.
type Engine struct {
	device  Device
	log     *slog.Logger
	refresh time.Duration

	mu     sync.Mutex
	state  State
	subs   []chan State
	closed bool

	// pendingSeek holds the optimistic seek target until the device
	// reports a position near it; stale positions polled mid-seek are
	// discarded so the playhead never jumps backwards.
	pendingSeek *float64

	stopPoll chan struct{}
	// pollGen identifies the current poller. Polls and device events
	// carry the generation they were started under; a mismatch means the
	// recording changed while the call was in flight and the result is
	// dropped.
	pollGen uint64
}

// NewEngine creates an engine on top of a device. refreshHz is the position
// poll rate; callers should pass the configured rate (bounded 4..10).
func NewEngine(device Device, refreshHz int, log *slog.Logger) *Engine {
	if refreshHz < 4 {
		refreshHz = 4
	}
	if refreshHz > 10 {
		refreshHz = 10
	}
	return &Engine{
		device:  device,
		log:     log,
		refresh: time.Second / time.Duration(refreshHz),
	}
}

// Subscribe returns a channel of state snapshots. The channel has a buffer
// of one and stale snapshots are replaced, so a slow reader always sees the
// latest state rather than a backlog.
func (e *Engine) Subscribe() <-chan State {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan State, 1)
	e.subs = append(e.subs, ch)
	ch <- e.state
	return ch
}

// Current returns the latest state snapshot.
func (e *Engine) Current() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Load makes rec the loaded recording. Loading the already-loaded recording
// is a no-op; loading a different one stops the current playback first and
// the new recording starts paused at zero.
func (e *Engine) Load(rec model.Recording) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errors.New("engine is closed")
	}
	if e.state.Loaded && e.state.RecordingID == rec.ID {
		return nil
	}

	if e.state.Loaded {
		if err := e.device.Stop(); err != nil {
			e.log.Warn("stopping previous recording failed", "error", err)
		}
		e.stopPollerLocked()
	}

	if err := e.device.Load(rec.Path); err != nil {
		e.state = State{}
		e.notifyLocked()
		return fmt.Errorf("%w: %s: %v", ErrUnplayable, rec.Path, err)
	}

	duration := rec.DurationSeconds
	if duration <= 0 {
		if d, err := e.device.Duration(); err == nil {
			duration = d
		}
	}

	e.state = State{
		RecordingID:     rec.ID,
		Loaded:          true,
		Playing:         false,
		PositionSeconds: 0,
		DurationSeconds: duration,
	}
	e.pendingSeek = nil
	e.startPollerLocked()
	e.notifyLocked()

	e.log.Info("recording loaded", "recordingID", rec.ID, "duration", duration)
	return nil
}

// Unload stops playback and discards the loaded recording. The poller is
// torn down; with nothing loaded the engine does no periodic work at all.
func (e *Engine) Unload() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Loaded {
		return nil
	}
	err := e.device.Stop()
	e.stopPollerLocked()
	e.state = State{}
	e.pendingSeek = nil
	e.notifyLocked()
	return err
}

// Play starts playback. With nothing loaded or already playing it is a
// no-op.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Loaded || e.state.Playing {
		return nil
	}
	if err := e.device.Play(); err != nil {
		return fmt.Errorf("play failed: %w", err)
	}
	e.state.Playing = true
	e.notifyLocked()
	return nil
}

// Pause stops playback without moving the playhead. With nothing loaded or
// already paused it is a no-op.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Loaded || !e.state.Playing {
		return nil
	}
	if err := e.device.Pause(); err != nil {
		return fmt.Errorf("pause failed: %w", err)
	}
	e.state.Playing = false
	e.notifyLocked()
	return nil
}

// Toggle plays when paused and pauses when playing.
func (e *Engine) Toggle() error {
	if e.Current().Playing {
		return e.Pause()
	}
	return e.Play()
}

// Seek moves the playhead to seconds, clamped to [0, duration]. The engine
// state updates optimistically before the device confirms so the UI tracks
// the gesture without waiting a poll cycle. With nothing loaded it is a
// no-op.
func (e *Engine) Seek(seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Loaded {
		return nil
	}
	target := model.ClampTimestamp(seconds, e.state.DurationSeconds)
	if err := e.device.Seek(target); err != nil {
		return fmt.Errorf("seek failed: %w", err)
	}
	e.state.PositionSeconds = target
	e.pendingSeek = &target
	e.notifyLocked()
	return nil
}

// Close tears down the poller and the device.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.stopPollerLocked()
	for _, ch := range e.subs {
		close(ch)
	}
	e.subs = nil
	e.mu.Unlock()

	return e.device.Close()
}

// startPollerLocked launches the single goroutine that drains poll ticks
// and device events. Caller holds e.mu.
func (e *Engine) startPollerLocked() {
	stop := make(chan struct{})
	e.stopPoll = stop
	e.pollGen++
	gen := e.pollGen

	go func() {
		ticker := time.NewTicker(e.refresh)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.pollPosition(gen)
			case ev, ok := <-e.device.Events():
				if !ok {
					return
				}
				e.handleDeviceEvent(ev, gen)
			}
		}
	}()
}

// stopPollerLocked signals the poll goroutine to exit and retires its
// generation. Caller holds e.mu; a poll already blocked on the lock sees
// the stale generation once it gets in and drops its result, so a position
// read from the previous recording never lands on the next one.
func (e *Engine) stopPollerLocked() {
	if e.stopPoll == nil {
		return
	}
	close(e.stopPoll)
	e.stopPoll = nil
	e.pollGen++
}

func (e *Engine) pollPosition(gen uint64) {
	pos, err := e.device.Position()
	if err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Loaded || gen != e.pollGen {
		return
	}

	if e.pendingSeek != nil {
		// Ignore positions polled before the device applied the seek.
		if diff := pos - *e.pendingSeek; diff < -0.25 || diff > 0.25 {
			return
		}
		e.pendingSeek = nil
	}

	if e.state.DurationSeconds > 0 && pos >= e.state.DurationSeconds {
		e.finishLocked()
		return
	}
	if pos != e.state.PositionSeconds {
		e.state.PositionSeconds = pos
		e.notifyLocked()
	}
}

func (e *Engine) handleDeviceEvent(ev DeviceEvent, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Loaded || gen != e.pollGen {
		return
	}

	switch ev.Kind {
	case EventEnded:
		e.finishLocked()
	case EventError:
		e.log.Error("playback device error", "error", ev.Err)
		e.state.Playing = false
		e.notifyLocked()
	}
}

// finishLocked handles running off the end: the recording stays loaded,
// playback pauses and the playhead resets to zero. Caller holds e.mu.
func (e *Engine) finishLocked() {
	e.state.Playing = false
	e.state.PositionSeconds = 0
	e.pendingSeek = nil
	if err := e.device.Pause(); err != nil {
		e.log.Warn("pause after end of recording failed", "error", err)
	}
	if err := e.device.Seek(0); err != nil {
		e.log.Warn("rewind after end of recording failed", "error", err)
	}
	e.notifyLocked()
}

// notifyLocked pushes the current state to every subscriber, replacing any
// undelivered snapshot. Caller holds e.mu.
func (e *Engine) notifyLocked() {
	for _, ch := range e.subs {
		select {
		case ch <- e.state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- e.state
		}
	}
}
