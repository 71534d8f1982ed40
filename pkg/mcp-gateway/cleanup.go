package mcpgateway

import (
	"log/slog"
	"sync"
)

// offEmitter is satisfied by an emitter whose On method returns its own
// unsubscribe closure — the preferred, "off-style" API.
type offEmitter interface {
	On(event string, fn func(any)) (off func())
}

// removeListenerEmitter is the fallback style: subscribe and
// unsubscribe are two separate calls keyed by the same function value.
type removeListenerEmitter interface {
	On(event string, fn func(any))
	RemoveListener(event string, fn func(any))
}

// CleanupManager is a scoped, single-shot resource manager: one per
// inbound request. It watches zero or more emitters for named lifecycle
// events and runs registered release callbacks exactly once, regardless
// of how many events fire or how many times Run is called.
type CleanupManager struct {
	profileName string
	logger      *slog.Logger

	mu        sync.Mutex
	triggered bool
	callbacks []func() error
	detachers []func()
}

// NewCleanupManager builds a CleanupManager for one request against
// profileName, used only to annotate the warning log record Run emits
// when triggered by an error.
func NewCleanupManager(profileName string, logger *slog.Logger) *CleanupManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupManager{profileName: profileName, logger: logger}
}

// Register appends a release callback. Callbacks run concurrently with
// each other when Run fires; a returned error is logged at warn and
// does not stop the others.
func (m *CleanupManager) Register(cb func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.triggered {
		return
	}
	m.callbacks = append(m.callbacks, cb)
}

// WatchEmitter subscribes to each named event on emitter, if emitter
// supports any recognised subscription style. Unrecognised emitters are
// silently not attached — the Cleanup Manager never errors just because
// an emitter offers no way to detach.
func (m *CleanupManager) WatchEmitter(emitter any, events []string) {
	if emitter == nil {
		return
	}
	listener := func(cause any) {
		var err error
		if e, ok := cause.(error); ok {
			err = e
		}
		m.Run(err)
	}

	if e, ok := emitter.(offEmitter); ok {
		for _, event := range events {
			off := e.On(event, listener)
			m.addDetacher(off)
		}
		return
	}
	if e, ok := emitter.(removeListenerEmitter); ok {
		for _, event := range events {
			ev := event
			e.On(ev, listener)
			m.addDetacher(func() { e.RemoveListener(ev, listener) })
		}
	}
}

func (m *CleanupManager) addDetacher(off func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.triggered {
		off()
		return
	}
	m.detachers = append(m.detachers, off)
}

// Run fires cleanup at-most-once: detaches every emitter subscription,
// then invokes every registered callback concurrently and
// independently. Later calls are no-ops.
func (m *CleanupManager) Run(cause error) {
	m.mu.Lock()
	if m.triggered {
		m.mu.Unlock()
		return
	}
	m.triggered = true
	detachers := m.detachers
	callbacks := m.callbacks
	m.detachers = nil
	m.callbacks = nil
	m.mu.Unlock()

	if cause != nil {
		m.logger.Warn("cleanup triggered by error", "err", cause, "profile", m.profileName)
	}

	for _, d := range detachers {
		d()
	}

	var wg sync.WaitGroup
	for _, cb := range callbacks {
		wg.Add(1)
		go func(cb func() error) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					m.logger.Warn("cleanup callback panicked", "panic", r, "profile", m.profileName)
				}
			}()
			if err := cb(); err != nil {
				m.logger.Warn("cleanup callback failed", "err", err, "profile", m.profileName)
			}
		}(cb)
	}
	wg.Wait()
}
