package playback

// DeviceEventKind identifies an asynchronous event from the media device.
type DeviceEventKind int

const (
	// EventEnded means playback ran off the end of the loaded file.
	EventEnded DeviceEventKind = iota
	// EventError means the device hit an unrecoverable problem with the
	// loaded file.
	EventError
)

// DeviceEvent is emitted by the media device on its own goroutine. The
// engine drains these and folds them into its single-threaded state loop;
// no other component consumes them directly.
type DeviceEvent struct {
	Kind DeviceEventKind
	Err  error
}

// Device is the platform media-playback primitive. It can load one file,
// play/pause it, report position and duration, and seek. Implementations
// own the decoding; the engine never touches samples.
type Device interface {
	Load(path string) error
	Play() error
	Pause() error
	Stop() error
	Seek(seconds float64) error
	Position() (float64, error)
	Duration() (float64, error)
	Events() <-chan DeviceEvent
	Close() error
}
