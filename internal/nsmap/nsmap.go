// Package nsmap implements the namespace manager: a bidirectional map
// between short prefixes and full IRI namespaces, used to expand CURIEs
// while parsing and to compress IRIs while serializing.
package nsmap

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tinygraph/tinygraph/internal/errs"
)

// Map owns the prefix <-> IRI bindings for one deserialization or
// serialization. It is safe for a single writer before Seal, and safe for
// concurrent readers after.
type Map struct {
	mu     sync.RWMutex
	toIRI  map[string]string
	sealed atomic.Bool
}

// New returns an empty, unsealed Map.
func New() *Map {
	return &Map{toIRI: make(map[string]string)}
}

// AddPrefix inserts or overwrites the mapping for prefix. A later
// redefinition only affects references resolved afterward; it never
// rewrites IRIs already expanded from the old binding.
func (m *Map) AddPrefix(prefix, iri string) error {
	if m.sealed.Load() {
		return errs.ErrSealed
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toIRI[prefix] = iri
	return nil
}

// Expand rewrites "prefix:suffix" to iri+suffix.
func (m *Map) Expand(curie string) (string, error) {
	prefix, suffix, ok := strings.Cut(curie, ":")
	if !ok {
		return "", errs.ErrUnknownPrefix
	}

	m.mu.RLock()
	iri, found := m.toIRI[prefix]
	m.mu.RUnlock()
	if !found {
		return "", errs.ErrUnknownPrefix
	}
	return iri + suffix, nil
}

// Compress is a best-effort reverse of Expand: it returns the shortest
// curie from the longest-matching registered namespace, or the IRI
// unchanged if no namespace matches.
func (m *Map) Compress(iri string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bestPrefix, bestNS := "", ""
	for prefix, ns := range m.toIRI {
		if strings.HasPrefix(iri, ns) && len(ns) > len(bestNS) {
			bestPrefix, bestNS = prefix, ns
		}
	}
	if bestNS == "" {
		return iri
	}
	return bestPrefix + ":" + iri[len(bestNS):]
}

// Seal makes the map read-only. Subsequent AddPrefix calls fail with
// ErrSealed. Seal is idempotent.
func (m *Map) Seal() {
	m.sealed.Store(true)
}

// Sealed reports whether Seal has been called.
func (m *Map) Sealed() bool {
	return m.sealed.Load()
}

// Prefixes returns a snapshot of the registered prefix -> namespace
// bindings, in no particular order.
func (m *Map) Prefixes() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.toIRI))
	for k, v := range m.toIRI {
		out[k] = v
	}
	return out
}
