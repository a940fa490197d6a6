package module

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"
)

// UpdateError records a module whose Update failed or panicked during RunFrame.
type UpdateError struct {
	Key  StageKey
	Type reflect.Type
	Err  error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("module %s (%s) update: %v", e.Type, e.Key, e.Err)
}

func (e *UpdateError) Unwrap() error { return e.Err }

type entry struct {
	key  StageKey
	typ  reflect.Type
	mod  Module
	dead bool // set on removal so an in-flight frame snapshot skips it
}

// Registry is the ordered collection of running modules plus the
// type-indexed table of singleton handles.
// Accessed only from the engine loop goroutine, so it takes no locks.
type Registry struct {
	entries   []*entry // ascending StageKey
	instances map[reflect.Type]Module
	log       *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		entries:   make([]*entry, 0, 16),
		instances: make(map[reflect.Type]Module),
		log:       log,
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Register inserts m under a fresh StageKey and publishes it as T's singleton.
//
// Registering T again without Deregister leaves the earlier instance in the
// registry (it keeps updating) while the singleton handle moves to m.
// m must be a non-nil pointer; anything else panics.
func Register[T Module](r *Registry, stage Stage, m T) StageKey {
	v := reflect.ValueOf(m)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		panic(fmt.Sprintf("module: Register[%s] needs a non-nil pointer, got %T", typeOf[T](), m))
	}

	t := typeOf[T]()
	if _, dup := r.instances[t]; dup {
		r.log.Warn("module registered again without deregistering",
			zap.Stringer("type", t), zap.Stringer("stage", stage))
	}

	e := &entry{key: StageKey{Stage: stage, Seq: nextSeq()}, typ: t, mod: m}
	r.insert(e)
	r.instances[t] = m

	r.log.Debug("module registered", zap.Stringer("type", t), zap.Stringer("key", e.key))
	return e.key
}

// RegisterEntry inserts m under a fresh StageKey without publishing a
// singleton handle. It serves modules that have many instances of one type,
// such as script modules; they leave through DeregisterKey.
func RegisterEntry(r *Registry, stage Stage, m Module) StageKey {
	v := reflect.ValueOf(m)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		panic(fmt.Sprintf("module: RegisterEntry needs a non-nil pointer, got %T", m))
	}
	e := &entry{key: StageKey{Stage: stage, Seq: nextSeq()}, typ: v.Type(), mod: m}
	r.insert(e)
	r.log.Debug("module entry registered", zap.Stringer("type", e.typ), zap.Stringer("key", e.key))
	return e.key
}

func (r *Registry) insert(e *entry) {
	i := sort.Search(len(r.entries), func(i int) bool {
		return e.key.Less(r.entries[i].key)
	})
	r.entries = slices.Insert(r.entries, i, e)
}

// DeregisterKey removes the entry registered under key. The instance is
// closed and its singleton handle cleared only when no other entry still holds
// it. Unknown keys are a no-op.
func DeregisterKey(r *Registry, key StageKey) (bool, error) {
	var victim *entry
	r.remove(func(e *entry) bool {
		if e.key == key {
			victim = e
			return true
		}
		return false
	})
	if victim == nil {
		return false, nil
	}
	for _, e := range r.entries {
		if e.mod == victim.mod {
			return true, nil
		}
	}
	if cur, ok := r.instances[victim.typ]; ok && cur == victim.mod {
		delete(r.instances, victim.typ)
	}
	if c, ok := victim.mod.(Closer); ok {
		if err := c.Close(); err != nil {
			return true, fmt.Errorf("close %s: %w", victim.typ, err)
		}
	}
	return true, nil
}

// RegisterFunc constructs a module and registers it. A construction error is
// returned untouched and nothing is registered; the bootstrap treats it as fatal.
func RegisterFunc[T Module](r *Registry, stage Stage, newFn func() (T, error)) (T, error) {
	m, err := newFn()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("construct %s: %w", typeOf[T](), err)
	}
	Register(r, stage, m)
	return m, nil
}

// Deregister removes every entry owning T's current singleton, closes the
// instance if it implements Closer and clears the handle. Deregistering a
// type that is not registered is a no-op.
func Deregister[T Module](r *Registry) (int, error) {
	t := typeOf[T]()
	cur, ok := r.instances[t]
	if !ok {
		return 0, nil
	}
	delete(r.instances, t)

	removed := r.remove(func(e *entry) bool { return e.mod == cur })
	r.log.Debug("module deregistered", zap.Stringer("type", t), zap.Int("entries", removed))

	if c, ok := cur.(Closer); ok {
		if err := c.Close(); err != nil {
			return removed, fmt.Errorf("close %s: %w", t, err)
		}
	}
	return removed, nil
}

// remove rebuilds the entry slice so snapshots taken by RunFrame stay intact.
func (r *Registry) remove(match func(*entry) bool) int {
	kept := make([]*entry, 0, len(r.entries))
	removed := 0
	for _, e := range r.entries {
		if match(e) {
			e.dead = true
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return removed
}

// Get returns T's singleton handle. The handle is weak: callers must handle
// the not-registered case.
func Get[T Module](r *Registry) (T, bool) {
	m, ok := r.instances[typeOf[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	return m.(T), true
}

// MustGet returns T's singleton handle and panics when it is absent.
// Only for bootstrap code that registered T itself.
func MustGet[T Module](r *Registry) T {
	m, ok := Get[T](r)
	if !ok {
		panic(fmt.Sprintf("module not registered: %s", typeOf[T]()))
	}
	return m
}

// RunFrame calls Update on every module whose stage is in stages, in
// ascending StageKey order. A failing or panicking module is recorded and
// the frame continues with the next module; all failures are returned joined.
// Modules registered during the frame first run on the next call; modules
// removed during the frame are skipped.
func (r *Registry) RunFrame(stages StageSet, dt time.Duration) error {
	snapshot := slices.Clone(r.entries)

	var errs []error
	for _, e := range snapshot {
		if e.dead || !stages.Has(e.key.Stage) {
			continue
		}
		if err := e.update(dt); err != nil {
			r.log.Error("module update failed",
				zap.Stringer("type", e.typ),
				zap.Stringer("key", e.key),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *entry) update(dt time.Duration) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &UpdateError{Key: e.key, Type: e.typ, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	if uerr := e.mod.Update(dt); uerr != nil {
		return &UpdateError{Key: e.key, Type: e.typ, Err: uerr}
	}
	return nil
}

// DeregisterAll tears the registry down: every entry is removed and each
// distinct instance is closed once, in reverse StageKey order of its last
// entry. Every singleton handle is cleared.
func (r *Registry) DeregisterAll() error {
	entries := r.entries
	r.entries = make([]*entry, 0, 16)
	clear(r.instances)

	var errs []error
	closed := make(map[Module]struct{}, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		e.dead = true
		if _, done := closed[e.mod]; done {
			continue
		}
		closed[e.mod] = struct{}{}
		if c, ok := e.mod.(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", e.typ, err))
			}
		}
	}
	r.log.Debug("module registry cleared", zap.Int("entries", len(entries)))
	return errors.Join(errs...)
}

// Len returns the number of registry entries, duplicates included.
func (r *Registry) Len() int { return len(r.entries) }

// Keys returns the entry keys in update order.
func (r *Registry) Keys() []StageKey {
	keys := make([]StageKey, len(r.entries))
	for i, e := range r.entries {
		keys[i] = e.key
	}
	return keys
}

// Stage returns the stage of the live entry registered under key.
func (r *Registry) Stage(key StageKey) (Stage, bool) {
	i := sort.Search(len(r.entries), func(i int) bool {
		return !r.entries[i].key.Less(key)
	})
	if i < len(r.entries) && r.entries[i].key == key {
		return key.Stage, true
	}
	return StageNever, false
}

// Each visits every entry in update order.
func (r *Registry) Each(fn func(StageKey, Module)) {
	for _, e := range slices.Clone(r.entries) {
		if !e.dead {
			fn(e.key, e.mod)
		}
	}
}
