// Package channeltest provides a recording Transport for tests.
package channeltest

import (
	"errors"
	"sync"

	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

// ErrInjectFailed is returned by Inject after Fail is called.
var ErrInjectFailed = errors.New("inject failed")

// Recorder is a Transport that keeps every injected script.
type Recorder struct {
	mu      sync.Mutex
	scripts []string
	closed  bool
	fail    bool
}

// Inject records script.
func (r *Recorder) Inject(script string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail {
		return ErrInjectFailed
	}
	r.scripts = append(r.scripts, script)
	return nil
}

// Close marks the recorder closed.
func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Fail makes later injections fail.
func (r *Recorder) Fail() {
	r.mu.Lock()
	r.fail = true
	r.mu.Unlock()
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Scripts returns the injected scripts in order.
func (r *Recorder) Scripts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.scripts...)
}

// Messages decodes every injected message script, skipping other scripts.
func (r *Recorder) Messages() []protocol.Message {
	var out []protocol.Message
	for _, s := range r.Scripts() {
		if msg, err := protocol.ParseScript(s); err == nil {
			out = append(out, msg)
		}
	}
	return out
}

// Types returns the type of every injected message in order.
func (r *Recorder) Types() []protocol.Type {
	msgs := r.Messages()
	out := make([]protocol.Type, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}
