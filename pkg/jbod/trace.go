package jbod

import (
	"sync"

	log "github.com/fclairamb/go-log"
	lognoop "github.com/fclairamb/go-log/noop"
)

// Tracer wraps a Device, logging and recording every control word passed
// through it.
type Tracer struct {
	dev    Device
	logger log.Logger

	mutex   sync.Mutex
	history []ControlWord
}

// NewTracer wraps dev. A nil logger only records.
func NewTracer(dev Device, logger log.Logger) *Tracer {
	if logger == nil {
		logger = lognoop.NewNoOpLogger()
	}
	return &Tracer{dev: dev, logger: logger.With("component", "trace")}
}

// Operation forwards to the wrapped device.
func (t *Tracer) Operation(op uint32, block []byte) error {
	w := Unpack(op)

	t.mutex.Lock()
	t.history = append(t.history, w)
	t.mutex.Unlock()

	err := t.dev.Operation(op, block)
	if err != nil {
		t.logger.Debug("Operation", "op", w.String(), "err", err)
	} else {
		t.logger.Debug("Operation", "op", w.String())
	}
	return err
}

// Calls returns the number of operations issued so far.
func (t *Tracer) Calls() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.history)
}

// History returns a copy of the issued control words in order.
func (t *Tracer) History() []ControlWord {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return append([]ControlWord(nil), t.history...)
}

// Reset clears the recorded history.
func (t *Tracer) Reset() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.history = nil
}
