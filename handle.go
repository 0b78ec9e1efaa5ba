package pxl

import (
	"sync"
	"sync/atomic"
)

// Handle is a slot for an asset that may not be loaded yet. Draw records
// reference assets through handles; records whose handle is empty are
// skipped. A Handle is safe for concurrent use.
type Handle[T any] struct {
	v    atomic.Pointer[T]
	mu   sync.Mutex
	err  error
	name string
}

// NewHandle returns an empty handle. name is used in log messages.
func NewHandle[T any](name string) *Handle[T] {
	return &Handle[T]{name: name}
}

// Loaded returns a handle that already holds v.
func Loaded[T any](v *T) *Handle[T] {
	h := &Handle[T]{}
	h.v.Store(v)
	return h
}

// Name returns the name given to NewHandle.
func (h *Handle[T]) Name() string { return h.name }

// Get returns the asset, or nil if it is not loaded. A nil handle is empty.
func (h *Handle[T]) Get() *T {
	if h == nil {
		return nil
	}
	return h.v.Load()
}

// Ready reports whether the asset is loaded.
func (h *Handle[T]) Ready() bool { return h.Get() != nil }

// Set stores v and clears any earlier error. Setting a new value replaces
// the asset for every record that references the handle.
func (h *Handle[T]) Set(v *T) {
	h.mu.Lock()
	h.err = nil
	h.mu.Unlock()
	h.v.Store(v)
}

// Fail records why the asset could not be loaded. The handle stays empty.
func (h *Handle[T]) Fail(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}

// Err returns the load error, ErrNotLoaded while loading, or nil once the
// asset is ready.
func (h *Handle[T]) Err() error {
	if h.Ready() {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	return ErrNotLoaded
}
