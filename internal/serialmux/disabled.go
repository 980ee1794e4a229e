package serialmux

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrSerialDisabled is returned by DisabledSerialMux.SendCommand.
var ErrSerialDisabled = errors.New("serial port disabled")

// DisabledSerialMux stands in for the rangefinder when samples come from
// somewhere else. It never produces a line and refuses commands, but keeps
// the debug routes mounted so the admin page looks the same for every source.
type DisabledSerialMux struct {
	reason string

	mu     sync.Mutex
	subs   map[string]chan string
	closed bool
}

// NewDisabledSerialMux returns a mux that reports reason, e.g. "udp source",
// from Stats and from refused commands.
func NewDisabledSerialMux(reason string) *DisabledSerialMux {
	if reason == "" {
		reason = "no serial port"
	}
	return &DisabledSerialMux{reason: reason, subs: make(map[string]chan string)}
}

// Subscribe hands out a channel that is only ever closed.
func (d *DisabledSerialMux) Subscribe() (string, chan string) {
	id, ch := randomID(), make(chan string)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		close(ch)
	} else {
		d.subs[id] = ch
	}
	return id, ch
}

func (d *DisabledSerialMux) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.subs[id]; ok {
		delete(d.subs, id)
		close(ch)
	}
}

func (d *DisabledSerialMux) SendCommand(command string) error {
	return fmt.Errorf("%w (%s): dropped %q", ErrSerialDisabled, d.reason, command)
}

// Monitor waits for ctx; there is no port to read.
func (d *DisabledSerialMux) Monitor(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// Initialise skips the poll command a real port would receive.
func (d *DisabledSerialMux) Initialise() error { return nil }

func (d *DisabledSerialMux) Stats() LineStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return LineStats{Subscribers: len(d.subs), Disabled: d.reason}
}

func (d *DisabledSerialMux) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		for id, ch := range d.subs {
			delete(d.subs, id)
			close(ch)
		}
	}
	return nil
}

func (d *DisabledSerialMux) AttachAdminRoutes(mux *http.ServeMux) {
	attachAdminRoutes(mux, d)
}
