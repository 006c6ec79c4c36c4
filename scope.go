package grove

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Disposable is implemented by services that release resources when their
// scope ends. Services implementing [io.Closer] are disposed as well.
type Disposable interface {
	Dispose() error
}

type scopeState int

const (
	scopeActive scopeState = iota
	scopeDisposing
	scopeDisposed
)

// errCreatePanicked marks an entry whose creation panicked past the
// activator; waiters receive it instead of blocking forever.
var errCreatePanicked = errors.New("instance creation panicked")

// entry is a single-flight slot in the scope cache. done is closed once
// value and err are final. owner is the call creating the instance.
type entry struct {
	done  chan struct{}
	owner *call
	value any
	err   error
}

func (e *entry) isDone() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

type disposable struct {
	key      Key
	instance any
}

// Scope owns the instances created for one unit of work and disposes them
// together. The root scope lives as long as its [Container] and holds every
// singleton; child scopes come from [Container.NewScope].
//
// A Scope is safe for concurrent use. Scoped and singleton instances are
// constructed exactly once per scope even under concurrent first requests.
type Scope struct {
	id   string
	c    *Container
	root *Scope

	mu          sync.Mutex
	state       scopeState
	entries     map[cacheKey]*entry
	disposables []disposable
	inflight    sync.WaitGroup
	created     time.Time
}

var _ Resolver = (*Scope)(nil)

func newScope(c *Container, root *Scope) *Scope {
	s := &Scope{
		id:      uuid.NewString(),
		c:       c,
		root:    root,
		entries: make(map[cacheKey]*entry),
		created: time.Now(),
	}
	if root == nil {
		s.root = s
	}
	return s
}

// ID returns the unique identifier of the scope.
func (s *Scope) ID() string {
	return s.id
}

func (s *Scope) isRoot() bool {
	return s.root == s
}

// Resolve returns the instance of the last registration for key, as seen
// from this scope.
func (s *Scope) Resolve(key Key) (any, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	inst, err := s.newResolution().Resolve(key)
	if err != nil {
		s.c.resolutionFailed(s, key, err)
		return nil, err
	}
	return inst, nil
}

// ResolveAll returns one instance per registration of key, in registration
// order, or an empty slice.
func (s *Scope) ResolveAll(key Key) ([]any, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	out, err := s.newResolution().ResolveAll(key)
	if err != nil {
		s.c.resolutionFailed(s, key, err)
		return nil, err
	}
	return out, nil
}

// TryResolve is Resolve that reports failure as false.
func (s *Scope) TryResolve(key Key) (any, bool) {
	inst, err := s.Resolve(key)
	if err != nil {
		return nil, false
	}
	return inst, true
}

func (s *Scope) newResolution() *resolution {
	return &resolution{c: s.c, scope: s, call: &call{}}
}

func (s *Scope) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != scopeActive {
		return &ScopeDisposedError{ScopeID: s.id}
	}
	return nil
}

// enter registers an in-flight call. It fails once disposal has begun.
func (s *Scope) enter() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != scopeActive {
		return &ScopeDisposedError{ScopeID: s.id}
	}
	s.inflight.Add(1)
	return nil
}

// getOrCreate returns the instance for ck under lifetime l on behalf of r.
// Transient instances are created every time; scoped ones are cached here;
// singletons are cached in the root scope whichever scope asks.
func (s *Scope) getOrCreate(r *resolution, ck cacheKey, l Lifetime, create func() (any, error)) (any, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.inflight.Done()

	if l == Singleton && !s.isRoot() {
		return s.root.getOrCreate(r, ck, l, create)
	}
	if !l.cached() {
		return create()
	}

	s.mu.Lock()
	if e, ok := s.entries[ck]; ok {
		s.mu.Unlock()
		return s.wait(r, e)
	}
	e := &entry{done: make(chan struct{}), owner: r.call}
	s.entries[ck] = e
	s.mu.Unlock()

	var value any
	err := errCreatePanicked
	defer func() {
		s.finish(ck, e, value, err)
	}()

	value, err = create()
	return value, err
}

// wait blocks until another call has finished creating e. It fails instead
// when that call is itself blocked, directly or through other calls, on an
// entry r is creating.
func (s *Scope) wait(r *resolution, e *entry) (any, error) {
	if !e.isDone() {
		if err := s.c.waits.enter(r.call, r.chain, e); err != nil {
			return nil, err
		}
		<-e.done
		s.c.waits.leave(r.call)
	}
	return e.value, e.err
}

// finish publishes the outcome of a creation. Failed creations are dropped
// from the cache so a later call can retry.
func (s *Scope) finish(ck cacheKey, e *entry, value any, err error) {
	s.mu.Lock()
	e.value, e.err = value, err
	if err != nil {
		delete(s.entries, ck)
	} else if isDisposable(value) {
		s.disposables = append(s.disposables, disposable{key: ck.key, instance: value})
	}
	s.mu.Unlock()
	close(e.done)
}

func isDisposable(v any) bool {
	switch v.(type) {
	case Disposable, io.Closer:
		return true
	}
	return false
}

// Dispose releases every cached instance that implements [Disposable] or
// [io.Closer], in reverse creation order. It waits for in-flight resolves on
// this scope to finish and rejects new ones. Every disposable is attempted;
// failures are returned together as a [*DisposeError].
//
// Calling Dispose again returns a [*ScopeDisposedError].
func (s *Scope) Dispose() error {
	return s.dispose(context.Background())
}

func (s *Scope) dispose(ctx context.Context) error {
	s.mu.Lock()
	if s.state != scopeActive {
		s.mu.Unlock()
		return &ScopeDisposedError{ScopeID: s.id}
	}
	s.state = scopeDisposing
	s.mu.Unlock()

	s.inflight.Wait()

	s.mu.Lock()
	items := s.disposables
	s.disposables = nil
	s.entries = nil
	s.state = scopeDisposed
	s.mu.Unlock()

	var errs []error
	for i := len(items) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		item := items[i]
		if err := disposeInstance(item.instance); err != nil {
			s.c.logger.Warn("Failed to dispose service", "key", item.key.String(), "scope", s.id, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", item.key, err))
		}
	}

	if !s.isRoot() {
		s.c.forgetScope(s)
	}

	s.c.logger.Debug("Scope disposed",
		"scope", s.id,
		"root", s.isRoot(),
		"disposed", len(items),
		"failures", len(errs),
		"age", time.Since(s.created),
	)
	s.c.emit(EventTypeScopeDisposed, map[string]any{
		"scope":    s.id,
		"root":     s.isRoot(),
		"disposed": len(items),
		"failures": len(errs),
	})

	if len(errs) > 0 {
		return &DisposeError{ScopeID: s.id, Errors: errs}
	}
	return nil
}

func disposeInstance(inst any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	switch v := inst.(type) {
	case Disposable:
		return v.Dispose()
	case io.Closer:
		return v.Close()
	}
	return nil
}
