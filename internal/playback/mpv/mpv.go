// Package mpv drives a headless mpv process over its JSON IPC socket. It is
// the production playback.Device: mpv owns decoding and audio output, this
// package only speaks the line-delimited JSON protocol.
package mpv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mixnote/mixnote/internal/playback"
)

const (
	connectTimeout = 5 * time.Second
	connectRetry   = 100 * time.Millisecond
	requestTimeout = 2 * time.Second
)

// Device is an mpv-backed playback.Device. One mpv process per Device,
// started idle and paused; Load replaces the current file.
type Device struct {
	log *slog.Logger

	cmd    *exec.Cmd
	conn   net.Conn
	socket string

	mu      sync.Mutex
	nextID  int
	pending map[int]chan response

	events chan playback.DeviceEvent
	done   chan struct{}
}

type request struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id"`
}

type response struct {
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	RequestID int             `json:"request_id"`
	Event     string          `json:"event"`
	Reason    string          `json:"reason"`
}

// Start launches an mpv process with an IPC socket in socketDir and waits
// for the socket to accept a connection.
func Start(binary, socketDir string, log *slog.Logger) (*Device, error) {
	if binary == "" {
		binary = "mpv"
	}
	if socketDir == "" {
		socketDir = os.TempDir()
	}
	socket := filepath.Join(socketDir, fmt.Sprintf("mixnote-mpv-%s.sock", uuid.NewString()))

	cmd := exec.Command(binary,
		"--no-video",
		"--no-terminal",
		"--idle=yes",
		"--pause",
		"--keep-open=no",
		"--input-ipc-server="+socket,
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", binary, err)
	}

	conn, err := dial(socket)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("failed to connect to mpv socket: %w", err)
	}

	d := &Device{
		log:     log,
		cmd:     cmd,
		conn:    conn,
		socket:  socket,
		pending: make(map[int]chan response),
		events:  make(chan playback.DeviceEvent, 8),
		done:    make(chan struct{}),
	}
	go d.readLoop()

	log.Debug("mpv started", "socket", socket)
	return d, nil
}

func dial(socket string) (net.Conn, error) {
	deadline := time.Now().Add(connectTimeout)
	for {
		conn, err := net.Dial("unix", socket)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(connectRetry)
	}
}

// readLoop dispatches responses to their waiting callers and translates mpv
// events into DeviceEvents.
func (d *Device) readLoop() {
	defer close(d.events)

	scanner := bufio.NewScanner(d.conn)
	for scanner.Scan() {
		var resp response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			d.log.Debug("unparseable mpv message", "raw", scanner.Text())
			continue
		}

		if resp.Event != "" {
			d.handleEvent(resp)
			continue
		}

		d.mu.Lock()
		ch, ok := d.pending[resp.RequestID]
		if ok {
			delete(d.pending, resp.RequestID)
		}
		d.mu.Unlock()
		if ok {
			ch <- resp
		}
	}

	select {
	case <-d.done:
	default:
		d.events <- playback.DeviceEvent{
			Kind: playback.EventError,
			Err:  errors.New("mpv connection lost"),
		}
	}
}

func (d *Device) handleEvent(resp response) {
	switch resp.Event {
	case "end-file":
		// Only a natural end-of-file counts as ended; "stop" and
		// "redirect" reasons come from our own loadfile/stop commands.
		switch resp.Reason {
		case "eof":
			d.events <- playback.DeviceEvent{Kind: playback.EventEnded}
		case "error":
			d.events <- playback.DeviceEvent{
				Kind: playback.EventError,
				Err:  errors.New("mpv failed to play file"),
			}
		}
	}
}

// command sends a request and waits for mpv's reply.
func (d *Device) command(args ...any) (json.RawMessage, error) {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	ch := make(chan response, 1)
	d.pending[id] = ch

	payload, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		delete(d.pending, id)
		d.mu.Unlock()
		return nil, err
	}
	_, err = d.conn.Write(append(payload, '\n'))
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("mpv write failed: %w", err)
	}

	select {
	case resp := <-ch:
		if resp.Error != "" && resp.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", resp.Error)
		}
		return resp.Data, nil
	case <-time.After(requestTimeout):
		d.mu.Lock()
		delete(d.pending, id)
		d.mu.Unlock()
		return nil, errors.New("mpv request timed out")
	}
}

func (d *Device) getFloat(property string) (float64, error) {
	data, err := d.command("get_property", property)
	if err != nil {
		return 0, err
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("unexpected mpv %s value: %w", property, err)
	}
	return v, nil
}

// Load replaces the current file. mpv stays paused until Play.
func (d *Device) Load(path string) error {
	if _, err := d.command("loadfile", path, "replace"); err != nil {
		return err
	}
	_, err := d.command("set_property", "pause", true)
	return err
}

// Play unpauses mpv.
func (d *Device) Play() error {
	_, err := d.command("set_property", "pause", false)
	return err
}

// Pause pauses mpv.
func (d *Device) Pause() error {
	_, err := d.command("set_property", "pause", true)
	return err
}

// Stop pauses and unloads the current file.
func (d *Device) Stop() error {
	_, err := d.command("stop")
	return err
}

// Seek jumps to an absolute position in seconds.
func (d *Device) Seek(seconds float64) error {
	_, err := d.command("seek", seconds, "absolute")
	return err
}

// Position reports the current playback position in seconds.
func (d *Device) Position() (float64, error) {
	return d.getFloat("time-pos")
}

// Duration reports the loaded file's duration in seconds.
func (d *Device) Duration() (float64, error) {
	return d.getFloat("duration")
}

// Events exposes translated mpv events.
func (d *Device) Events() <-chan playback.DeviceEvent {
	return d.events
}

// Close quits mpv, closes the socket and removes the socket file.
func (d *Device) Close() error {
	close(d.done)
	_, _ = d.command("quit")
	err := d.conn.Close()
	_ = d.cmd.Wait()
	_ = os.Remove(d.socket)
	return err
}
