package playback

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixnote/mixnote/internal/model"
)

// fakeDevice is a scripted in-memory device. Position and duration are set
// by the test; calls are recorded for assertions.
type fakeDevice struct {
	mu       sync.Mutex
	calls    []string
	pos      float64
	duration float64
	loadErr  error
	events   chan DeviceEvent
}

func newFakeDevice(duration float64) *fakeDevice {
	return &fakeDevice{duration: duration, events: make(chan DeviceEvent, 4)}
}

func (f *fakeDevice) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeDevice) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeDevice) Load(path string) error {
	f.record("load " + path)
	return f.loadErr
}

func (f *fakeDevice) Play() error  { f.record("play"); return nil }
func (f *fakeDevice) Pause() error { f.record("pause"); return nil }
func (f *fakeDevice) Stop() error  { f.record("stop"); return nil }

func (f *fakeDevice) Seek(seconds float64) error {
	f.record("seek")
	f.mu.Lock()
	f.pos = seconds
	f.mu.Unlock()
	return nil
}

func (f *fakeDevice) Position() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos, nil
}

func (f *fakeDevice) setPosition(pos float64) {
	f.mu.Lock()
	f.pos = pos
	f.mu.Unlock()
}

func (f *fakeDevice) Duration() (float64, error) { return f.duration, nil }
func (f *fakeDevice) Events() <-chan DeviceEvent { return f.events }
func (f *fakeDevice) Close() error               { f.record("close"); return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, device Device) *Engine {
	t.Helper()
	e := NewEngine(device, 10, testLogger())
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func loadedRecording() model.Recording {
	rec := model.Recording{Title: "bounce-v3", Path: "/mixes/bounce-v3.wav", DurationSeconds: 180}
	rec.ID = 1
	return rec
}

// pollGeneration reads the current poller generation the way the poll
// goroutine would capture it.
func (e *Engine) pollGeneration() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pollGen
}

func TestLoad_StartsPausedAtZero(t *testing.T) {
	dev := newFakeDevice(180)
	e := newTestEngine(t, dev)

	require.NoError(t, e.Load(loadedRecording()))

	st := e.Current()
	assert.True(t, st.Loaded)
	assert.False(t, st.Playing)
	assert.Equal(t, 0.0, st.PositionSeconds)
	assert.Equal(t, 180.0, st.DurationSeconds)
}

func TestLoad_SameRecordingIsNoop(t *testing.T) {
	dev := newFakeDevice(180)
	e := newTestEngine(t, dev)

	require.NoError(t, e.Load(loadedRecording()))
	require.NoError(t, e.Play())
	require.NoError(t, e.Load(loadedRecording()))

	assert.Equal(t, 1, dev.callCount("load /mixes/bounce-v3.wav"))
	assert.True(t, e.Current().Playing, "reload of the same recording must not disturb playback")
}

func TestLoad_OtherRecordingStopsCurrent(t *testing.T) {
	dev := newFakeDevice(180)
	e := newTestEngine(t, dev)

	require.NoError(t, e.Load(loadedRecording()))
	require.NoError(t, e.Play())
	require.NoError(t, e.Seek(42))

	other := model.Recording{Title: "other", Path: "/mixes/other.wav", DurationSeconds: 60}
	other.ID = 2
	require.NoError(t, e.Load(other))

	assert.Equal(t, 1, dev.callCount("stop"))
	st := e.Current()
	assert.Equal(t, uint(2), st.RecordingID)
	assert.False(t, st.Playing)
	assert.Equal(t, 0.0, st.PositionSeconds)
	assert.Equal(t, 60.0, st.DurationSeconds)
}

func TestLoad_DeviceRejectsFile(t *testing.T) {
	dev := newFakeDevice(0)
	dev.loadErr = errors.New("unsupported codec")
	e := newTestEngine(t, dev)

	err := e.Load(loadedRecording())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnplayable)
	assert.False(t, e.Current().Loaded)
}

func TestLoad_DurationFromDeviceWhenUnknown(t *testing.T) {
	dev := newFakeDevice(321)
	e := newTestEngine(t, dev)

	rec := loadedRecording()
	rec.DurationSeconds = 0
	require.NoError(t, e.Load(rec))

	assert.Equal(t, 321.0, e.Current().DurationSeconds)
}

func TestPlayPause_Idempotent(t *testing.T) {
	dev := newFakeDevice(180)
	e := newTestEngine(t, dev)
	require.NoError(t, e.Load(loadedRecording()))

	require.NoError(t, e.Play())
	require.NoError(t, e.Play())
	assert.Equal(t, 1, dev.callCount("play"), "second play is a no-op")

	require.NoError(t, e.Pause())
	require.NoError(t, e.Pause())
	assert.Equal(t, 1, dev.callCount("pause"), "second pause is a no-op")
}

func TestPlayPauseSeek_NoopWhenNothingLoaded(t *testing.T) {
	dev := newFakeDevice(0)
	e := newTestEngine(t, dev)

	assert.NoError(t, e.Play())
	assert.NoError(t, e.Pause())
	assert.NoError(t, e.Seek(42))
	assert.Empty(t, dev.calls)
}

func TestSeek_ClampsAndAppliesOptimistically(t *testing.T) {
	dev := newFakeDevice(180)
	e := newTestEngine(t, dev)
	require.NoError(t, e.Load(loadedRecording()))

	require.NoError(t, e.Seek(-5))
	assert.Equal(t, 0.0, e.Current().PositionSeconds)

	require.NoError(t, e.Seek(9999))
	assert.Equal(t, 180.0, e.Current().PositionSeconds)

	require.NoError(t, e.Seek(42))
	assert.Equal(t, 42.0, e.Current().PositionSeconds, "position updates before the next poll")
}

func TestPoll_DiscardsStalePositionDuringSeek(t *testing.T) {
	dev := newFakeDevice(180)
	e := newTestEngine(t, dev)
	require.NoError(t, e.Load(loadedRecording()))

	require.NoError(t, e.Seek(100))

	// The device has not applied the seek yet and still reports an old
	// position; the engine must not move the playhead backwards.
	dev.setPosition(3)
	e.pollPosition(e.pollGeneration())
	assert.Equal(t, 100.0, e.Current().PositionSeconds)

	// Once the device catches up, polls flow through again.
	dev.setPosition(100.1)
	e.pollPosition(e.pollGeneration())
	assert.InDelta(t, 100.1, e.Current().PositionSeconds, 0.001)
}

func TestPoll_StaleGenerationDropsAfterReload(t *testing.T) {
	dev := newFakeDevice(180)
	e := newTestEngine(t, dev)
	require.NoError(t, e.Load(loadedRecording()))
	staleGen := e.pollGeneration()

	// The previous recording's poll is still in flight when another one
	// loads; its position belongs to the old file and must not land.
	other := model.Recording{Title: "other", Path: "/mixes/other.wav", DurationSeconds: 60}
	other.ID = 2
	require.NoError(t, e.Load(other))

	dev.setPosition(150)
	e.pollPosition(staleGen)
	assert.Equal(t, 0.0, e.Current().PositionSeconds)

	dev.setPosition(30)
	e.pollPosition(e.pollGeneration())
	assert.Equal(t, 30.0, e.Current().PositionSeconds, "a current-generation poll still applies")
}

func TestPoll_EndOfRecordingResetsToPausedZero(t *testing.T) {
	dev := newFakeDevice(180)
	e := newTestEngine(t, dev)
	require.NoError(t, e.Load(loadedRecording()))
	require.NoError(t, e.Play())

	dev.setPosition(180)
	e.pollPosition(e.pollGeneration())

	st := e.Current()
	assert.False(t, st.Playing)
	assert.Equal(t, 0.0, st.PositionSeconds)
	assert.True(t, st.Loaded, "recording stays loaded after running off the end")
}

func TestDeviceEndedEvent_ResetsToPausedZero(t *testing.T) {
	dev := newFakeDevice(180)
	e := newTestEngine(t, dev)
	require.NoError(t, e.Load(loadedRecording()))
	require.NoError(t, e.Play())

	sub := e.Subscribe()
	dev.events <- DeviceEvent{Kind: EventEnded}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-sub:
			if !st.Playing && st.PositionSeconds == 0 {
				return
			}
		case <-deadline:
			t.Fatal("engine never processed the ended event")
		}
	}
}

func TestUnload_ClearsState(t *testing.T) {
	dev := newFakeDevice(180)
	e := newTestEngine(t, dev)
	require.NoError(t, e.Load(loadedRecording()))
	require.NoError(t, e.Play())

	require.NoError(t, e.Unload())

	st := e.Current()
	assert.False(t, st.Loaded)
	assert.False(t, st.Playing)
	assert.Equal(t, 1, dev.callCount("stop"))
}

func TestSubscribe_DeliversLatestSnapshot(t *testing.T) {
	dev := newFakeDevice(180)
	e := newTestEngine(t, dev)

	sub := e.Subscribe()
	st := <-sub
	assert.False(t, st.Loaded, "initial snapshot is the empty state")

	require.NoError(t, e.Load(loadedRecording()))
	require.NoError(t, e.Play())
	require.NoError(t, e.Seek(10))

	// The reader never drained; it must still see the newest state, not
	// a backlog of intermediate ones.
	var last State
	for {
		select {
		case s := <-sub:
			last = s
		default:
			assert.True(t, last.Playing)
			assert.Equal(t, 10.0, last.PositionSeconds)
			return
		}
	}
}

func TestToggle(t *testing.T) {
	dev := newFakeDevice(180)
	e := newTestEngine(t, dev)
	require.NoError(t, e.Load(loadedRecording()))

	require.NoError(t, e.Toggle())
	assert.True(t, e.Current().Playing)
	require.NoError(t, e.Toggle())
	assert.False(t, e.Current().Playing)
}
