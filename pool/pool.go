/*
Package pool provides cache for decoded material.

The main use case for this package is to share material of the same file
across multiple voices. Material is immutable, so it can be supplied by any
number of chains at once.
*/
package pool

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/dudk/clip/source"
)

// LoadFunc decodes material. It's called once per key until the material
// is released.
type LoadFunc func() (*source.Material, error)

type entry struct {
	material *source.Material
	refs     int
}

// Pool is a reference-counted material cache. It's safe for concurrent use,
// but must not be called on the real-time path.
type Pool struct {
	mu        sync.Mutex
	materials map[string]*entry
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{
		materials: map[string]*entry{},
	}
}

// Acquire returns material for key. If the key isn't cached, load is called
// and its result is cached. Every successful call must be paired with
// Release.
func (p *Pool) Acquire(key string, load LoadFunc) (*source.Material, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.materials[key]; ok {
		e.refs++
		return e.material, nil
	}

	m, err := load()
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", key)
	}
	p.materials[key] = &entry{material: m, refs: 1}
	return m, nil
}

// AcquireFile returns material of the audio file at path.
func (p *Pool) AcquireFile(path string) (*source.Material, error) {
	return p.Acquire(path, func() (*source.Material, error) {
		return source.Load(path)
	})
}

// Release decrements reference count of key. Material is dropped when the
// last reference is released. Unknown keys are ignored.
func (p *Pool) Release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.materials[key]
	if !ok {
		return
	}
	if e.refs--; e.refs <= 0 {
		delete(p.materials, key)
	}
}

// Refs returns number of references of key.
func (p *Pool) Refs(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.materials[key]; ok {
		return e.refs
	}
	return 0
}

// Wipe cleans up internal cache of materials.
func (p *Pool) Wipe() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.materials = map[string]*entry{}
}
