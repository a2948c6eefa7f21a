// Package registry maps names to dynamic Callables so computations can be
// looked up by string, invoked with arguments assembled at runtime, and
// chained.
//
// Registries nest: a registry created WithParent answers lookups for names it
// does not hold itself by delegating to its parent, the way an inner scope
// falls back to the enclosing one. A local registration shadows the parent's.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/on-the-ground/dynbind/dynamic"
	"go.uber.org/zap"
)

var (
	ErrEmptyName     = errors.New("callable name is empty")
	ErrNilCallable   = errors.New("callable is nil")
	ErrDuplicateName = errors.New("callable name already registered")
	ErrNotFound      = errors.New("callable not found")
)

// Registry is safe for concurrent use.
type Registry struct {
	ID string

	parent *Registry
	store  store
	cache  *resultCache
	logger *zap.Logger

	cacheConfig *CacheConfig
	closeOnce   sync.Once
}

type Option func(*Registry)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithParent makes lookups that miss locally fall back to parent.
func WithParent(parent *Registry) Option {
	return func(r *Registry) {
		r.parent = parent
	}
}

// WithResultCache caches successful results by registration and arguments. Only use
// it when every registered function is pure.
func WithResultCache(config CacheConfig) Option {
	return func(r *Registry) {
		r.cacheConfig = &config
	}
}

func New(opts ...Option) (*Registry, error) {
	s, err := newStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create callable store: %w", err)
	}
	r := &Registry{
		ID:     uuid.New().String(),
		store:  s,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cacheConfig != nil {
		if r.cache, err = newResultCache(*r.cacheConfig); err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
	}
	r.logger = r.logger.With(zap.String("registryId", r.ID))
	return r, nil
}

// Close releases the result cache, if any. Lookups and invocations keep
// working afterwards, uncached.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		if r.cache != nil {
			r.cache.close()
		}
	})
}

// Register stores c under name in this scope.
func (r *Registry) Register(name string, c dynamic.Callable) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if c == nil {
		return fmt.Errorf("%w: %q", ErrNilCallable, name)
	}

	entry := &Entry{
		ID:        uuid.New().String(),
		Name:      name,
		Arity:     c.Arity(),
		Signature: dynamic.Signature(c),
		Callable:  c,
	}
	inserted, err := r.store.insertIfAbsent(entry)
	if err != nil {
		return fmt.Errorf("failed to register %q: %w", name, err)
	}
	if !inserted {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	r.logger.Debug("registered callable",
		zap.String("name", name),
		zap.String("entryId", entry.ID),
		zap.String("signature", entry.Signature),
	)
	return nil
}

// MustRegister is the panic-on-failure variant of Register.
func (r *Registry) MustRegister(name string, c dynamic.Callable) {
	if err := r.Register(name, c); err != nil {
		panic(err)
	}
}

// Unregister removes name from this scope only.
func (r *Registry) Unregister(name string) bool {
	deleted, err := r.store.delete(name)
	if err != nil {
		r.logger.Warn("failed to unregister callable", zap.String("name", name), zap.Error(err))
		return false
	}
	if deleted {
		r.logger.Debug("unregistered callable", zap.String("name", name))
	}
	return deleted
}

// Entry returns the entry for name, consulting parent scopes.
func (r *Registry) Entry(name string) (Entry, error) {
	for scope := r; scope != nil; scope = scope.parent {
		entry, ok, err := scope.store.load(name)
		if err != nil {
			return Entry{}, fmt.Errorf("failed to look up %q: %w", name, err)
		}
		if ok {
			return *entry, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Lookup returns the Callable registered under name, consulting parent scopes.
func (r *Registry) Lookup(name string) (dynamic.Callable, error) {
	entry, err := r.Entry(name)
	if err != nil {
		return nil, err
	}
	return entry.Callable, nil
}

// Names lists the names registered in this scope, sorted.
func (r *Registry) Names() []string {
	entries, err := r.store.list(indexID)
	if err != nil {
		r.logger.Warn("failed to list callables", zap.Error(err))
		return nil
	}
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name
	}
	return names
}

// ByArity lists the entries of this scope taking exactly n arguments,
// sorted by name.
func (r *Registry) ByArity(n int) []Entry {
	entries, err := r.store.list(indexArity, n)
	if err != nil {
		r.logger.Warn("failed to list callables by arity", zap.Int("arity", n), zap.Error(err))
		return nil
	}
	res := make([]Entry, len(entries))
	for i, entry := range entries {
		res[i] = *entry
	}
	return res
}

// Invoke looks name up and invokes it with args. Invocation errors keep
// matching dynamic.ErrMissingArgument and dynamic.ErrTypeMismatch.
func (r *Registry) Invoke(name string, args dynamic.Arguments) (dynamic.Value, error) {
	entry, err := r.Entry(name)
	if err != nil {
		return dynamic.Value{}, err
	}
	c := entry.Callable

	var fp string
	cacheable := false
	if r.cache != nil {
		if fp, cacheable = fingerprint(entry.ID, c.Arity(), args); cacheable {
			if v, ok := r.cache.get(fp); ok {
				r.logger.Debug("result cache hit", zap.String("name", name))
				return v, nil
			}
		}
	}

	res, err := c.Invoke(args)
	if err != nil {
		r.logger.Warn("invocation failed",
			zap.String("name", name),
			zap.String("signature", dynamic.Signature(c)),
			zap.Error(err),
		)
		return dynamic.Value{}, fmt.Errorf("invoke %q: %w", name, err)
	}
	if cacheable {
		r.cache.set(fp, res)
	}
	return res, nil
}

// InvokeAs invokes name and extracts the result as a T.
func InvokeAs[T any](r *Registry, name string, args dynamic.Arguments) (T, error) {
	res, err := r.Invoke(name, args)
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := dynamic.Extract[T](res)
	if err != nil {
		return v, fmt.Errorf("result of %q: %w", name, err)
	}
	return v, nil
}
