// Package shutdown keeps the process-wide list of cleanup hooks that
// must run when the process exits normally or is interrupted.
//
// Hooks are registered by their owners when a resource is created and
// deregistered when the owner releases the resource itself, so the
// registry only ever holds hooks for live resources.
package shutdown

import (
	"cmp"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds how long hooks may run after an interrupt
// before the process exits anyway.
const DefaultTimeout = 5 * time.Second

// Hook releases a resource. A returned error is logged, never
// propagated.
type Hook func() error

// Handle identifies a registered hook. The zero Handle is never
// returned by Register.
type Handle struct {
	id uuid.UUID
}

// IsZero reports whether h was not obtained from Register.
func (h Handle) IsZero() bool {
	return h.id == uuid.Nil
}

func (h Handle) String() string {
	return h.id.String()
}

type entry struct {
	name string
	hook Hook
	seq  uint64
}

// Registry runs registered hooks on Run or when one of its signals
// arrives. The zero value is not usable, use New.
type Registry struct {
	logger  *zap.Logger
	timeout time.Duration
	exit    func(code int)
	signals []os.Signal

	mu       sync.Mutex
	hooks    map[uuid.UUID]entry
	seq      uint64
	sigCh    chan os.Signal
	stopCh   chan struct{}
	watching bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger hook failures are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithTimeout sets how long hooks may run after a signal.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Registry) {
		r.timeout = timeout
	}
}

// WithExit replaces os.Exit as the function called after signal
// cleanup.
func WithExit(exit func(code int)) Option {
	return func(r *Registry) {
		r.exit = exit
	}
}

// WithSignals sets the signals that trigger cleanup. Passing none
// disables signal handling.
func WithSignals(signals ...os.Signal) Option {
	return func(r *Registry) {
		r.signals = signals
	}
}

// New creates a registry that reacts to SIGINT and SIGTERM.
func New(opts ...Option) *Registry {
	r := &Registry{
		timeout: DefaultTimeout,
		exit:    os.Exit,
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
		hooks:   make(map[uuid.UUID]entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default is the registry of the running process.
var Default = New()

func (r *Registry) log() *zap.Logger {
	if r.logger != nil {
		return r.logger
	}
	return zap.L().Named("shutdown")
}

// Register adds a hook. Signal handling is installed with the first
// live hook.
func (r *Registry) Register(name string, hook Hook) Handle {
	id := uuid.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.hooks[id] = entry{name: name, hook: hook, seq: r.seq}
	if !r.watching && len(r.signals) > 0 {
		r.sigCh = make(chan os.Signal, 1)
		r.stopCh = make(chan struct{})
		signal.Notify(r.sigCh, r.signals...)
		r.watching = true
		go r.watch(r.sigCh, r.stopCh)
	}
	return Handle{id: id}
}

// Deregister removes a hook without running it. It reports whether the
// hook was still registered. Signal handling is uninstalled with the
// last live hook, restoring the default signal behaviour.
func (r *Registry) Deregister(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.hooks[h.id]; !ok {
		return false
	}
	delete(r.hooks, h.id)
	if len(r.hooks) == 0 {
		r.stopWatchingLocked()
	}
	return true
}

// Len returns the number of live hooks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks)
}

// Run drains the registry and runs every hook, most recently
// registered first. Hooks registered while Run is in progress are kept
// for a later Run.
func (r *Registry) Run() {
	r.mu.Lock()
	entries := make([]entry, 0, len(r.hooks))
	for _, e := range r.hooks {
		entries = append(entries, e)
	}
	clear(r.hooks)
	r.stopWatchingLocked()
	r.mu.Unlock()

	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Compare(b.seq, a.seq)
	})
	for _, e := range entries {
		r.runHook(e)
	}
}

// RunWithin is Run bounded by timeout. It reports whether all hooks
// finished in time; hooks still running are abandoned.
func (r *Registry) RunWithin(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func (r *Registry) runHook(e entry) {
	defer func() {
		if p := recover(); p != nil {
			r.log().Error("Cleanup hook panicked", zap.String("hook", e.name), zap.Any("panic", p))
		}
	}()
	if err := e.hook(); err != nil {
		r.log().Warn("Cleanup hook failed", zap.String("hook", e.name), zap.Error(err))
	}
}

func (r *Registry) stopWatchingLocked() {
	if !r.watching {
		return
	}
	signal.Stop(r.sigCh)
	close(r.stopCh)
	r.watching = false
}

func (r *Registry) watch(sigCh <-chan os.Signal, stopCh <-chan struct{}) {
	select {
	case sig := <-sigCh:
		r.handleSignal(sig)
	case <-stopCh:
	}
}

func (r *Registry) handleSignal(sig os.Signal) {
	r.log().Info("Received signal, cleaning up", zap.Stringer("signal", sig))
	if !r.RunWithin(r.timeout) {
		r.log().Warn("Cleanup did not finish in time", zap.Duration("timeout", r.timeout))
	}
	code := 1
	if s, ok := sig.(syscall.Signal); ok {
		code = 128 + int(s)
	}
	r.exit(code)
}

// Register adds a hook to the Default registry.
func Register(name string, hook Hook) Handle {
	return Default.Register(name, hook)
}

// Deregister removes a hook from the Default registry.
func Deregister(h Handle) bool {
	return Default.Deregister(h)
}

// Run runs all hooks of the Default registry. It is meant to be
// called once right before a normal process exit.
func Run() {
	Default.Run()
}
