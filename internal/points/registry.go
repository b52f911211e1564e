package points

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Observer receives every persisted point change.
// Observers run synchronously on the writer's goroutine and must not block;
// they may be invoked concurrently for different writers.
type Observer func(Change)

// Registry provides point management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Point
	cacheMu sync.RWMutex

	// writeMu serialises compare-and-persist so two writers to the same
	// point cannot both observe the old value.
	writeMu sync.Mutex

	observers   map[int]Observer
	nextObsID   int
	observersMu sync.RWMutex

	logger Logger
	now    func() time.Time
}

// NewRegistry creates a new point registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:      repo,
		cache:     make(map[string]*Point),
		observers: make(map[int]Observer),
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all points from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	list, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading points: %w", err)
	}

	r.cacheMu.Lock()
	r.cache = make(map[string]*Point, len(list))
	for i := range list {
		p := list[i]
		r.cache[p.Address] = &p
	}
	r.cacheMu.Unlock()

	r.logger.Info("point cache refreshed", "count", len(list))
	return nil
}

// Subscribe registers an observer and returns a function that removes it.
func (r *Registry) Subscribe(obs Observer) func() {
	r.observersMu.Lock()
	id := r.nextObsID
	r.nextObsID++
	r.observers[id] = obs
	r.observersMu.Unlock()

	return func() {
		r.observersMu.Lock()
		delete(r.observers, id)
		r.observersMu.Unlock()
	}
}

// Ensure creates the point if it does not exist. An existing point keeps
// its value and metadata. Returns true if the point was created.
func (r *Registry) Ensure(ctx context.Context, def Definition) (bool, error) {
	if err := def.Validate(); err != nil {
		return false, err
	}

	r.cacheMu.RLock()
	_, cached := r.cache[def.Address]
	r.cacheMu.RUnlock()
	if cached {
		return false, nil
	}

	r.writeMu.Lock()
	created, err := r.repo.Ensure(ctx, def)
	if err != nil {
		r.writeMu.Unlock()
		return false, err
	}

	var p *Point
	if created {
		p = &Point{Definition: def, Ack: true}
	} else {
		// Exists in the store but not yet cached.
		p, err = r.repo.Get(ctx, def.Address)
		if err != nil {
			r.writeMu.Unlock()
			return false, err
		}
	}

	r.cacheMu.Lock()
	r.cache[def.Address] = p
	r.cacheMu.Unlock()
	r.writeMu.Unlock()

	if created {
		r.logger.Debug("point created", "address", def.Address)
		r.notify(Change{Point: copyPoint(p), Created: true})
	}
	return created, nil
}

// EnsureAll ensures every definition, stopping at the first error.
// Returns the number of points created.
func (r *Registry) EnsureAll(ctx context.Context, defs []Definition) (int, error) {
	created := 0
	for _, def := range defs {
		ok, err := r.Ensure(ctx, def)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// Write sets a point's value and ack flag, persists it and notifies
// observers. A write that changes neither value nor ack is dropped.
func (r *Registry) Write(ctx context.Context, address string, value any, ack bool) error {
	return r.write(ctx, address, normalizeValue(value), ack, false)
}

// Submit records a user write: the value is coerced to the point's type
// and stored with ack=false for the command dispatcher to forward.
//
// Unlike Write, a Submit always notifies observers, since pressing a
// button twice is two commands.
func (r *Registry) Submit(ctx context.Context, address string, value any) error {
	r.cacheMu.RLock()
	p, ok := r.cache[address]
	var def Definition
	if ok {
		def = p.Definition
	}
	r.cacheMu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrPointNotFound, address)
	}
	if !def.Writable {
		return fmt.Errorf("%w: %s", ErrPointReadOnly, address)
	}

	coerced, err := Coerce(def.Type, value)
	if err != nil {
		return err
	}

	return r.write(ctx, address, coerced, false, true)
}

func (r *Registry) write(ctx context.Context, address string, value any, ack, force bool) error {
	r.writeMu.Lock()

	r.cacheMu.RLock()
	current, ok := r.cache[address]
	var prev Point
	if ok {
		prev = copyPoint(current)
	}
	r.cacheMu.RUnlock()

	if !ok {
		r.writeMu.Unlock()
		return fmt.Errorf("%w: %s", ErrPointNotFound, address)
	}

	if !force && prev.Ack == ack && prev.UpdatedAt != nil && valuesEqual(prev.Value, value) {
		r.writeMu.Unlock()
		return nil
	}

	now := r.now()
	if err := r.repo.UpdateValue(ctx, address, value, ack, now); err != nil {
		r.writeMu.Unlock()
		return err
	}

	updated := prev
	updated.Value = value
	updated.Ack = ack
	updated.UpdatedAt = &now

	r.cacheMu.Lock()
	stored := updated
	r.cache[address] = &stored
	r.cacheMu.Unlock()
	r.writeMu.Unlock()

	r.notify(Change{Point: updated, Previous: prev.Value})
	return nil
}

// Get returns a copy of the point at address.
func (r *Registry) Get(address string) (Point, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	p, ok := r.cache[address]
	if !ok {
		return Point{}, fmt.Errorf("%w: %s", ErrPointNotFound, address)
	}
	return copyPoint(p), nil
}

// Value returns the cached value at address, or nil if the point is
// missing or has never been written.
func (r *Registry) Value(address string) any {
	p, err := r.Get(address)
	if err != nil {
		return nil
	}
	return p.Value
}

// QueryAll returns a snapshot of every point at or below prefix.
func (r *Registry) QueryAll(prefix string) map[string]Point {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	result := make(map[string]Point)
	for addr, p := range r.cache {
		if HasPrefix(addr, prefix) {
			result[addr] = copyPoint(p)
		}
	}
	return result
}

// List returns all points ordered by address.
func (r *Registry) List() []Point {
	r.cacheMu.RLock()
	result := make([]Point, 0, len(r.cache))
	for _, p := range r.cache {
		result = append(result, copyPoint(p))
	}
	r.cacheMu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})
	return result
}

// Count returns the number of cached points.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

func (r *Registry) notify(c Change) {
	r.observersMu.RLock()
	obs := make([]Observer, 0, len(r.observers))
	for _, o := range r.observers {
		obs = append(obs, o)
	}
	r.observersMu.RUnlock()

	for _, o := range obs {
		r.safeNotify(o, c)
	}
}

func (r *Registry) safeNotify(o Observer, c Change) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("point observer panic recovered",
				"address", c.Point.Address,
				"panic", rec,
			)
		}
	}()
	o(c)
}

func copyPoint(p *Point) Point {
	cpy := *p
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		cpy.UpdatedAt = &t
	}
	return cpy
}
