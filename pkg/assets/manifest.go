// Package assets resolves fingerprinted asset paths at runtime.
//
// A build step emits a manifest.json mapping logical asset names to
// their hashed filenames:
//
//	{
//	  "islands/counter.js": "islands/counter.8f1c2ab0.js",
//	  "app.css": "app.d94e0b11.css"
//	}
//
// The server loads that manifest and resolves hydration moduleUrls and
// stylesheet hrefs through it, so markup always points at the build
// that produced it.
package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Manifest maps logical asset names to fingerprinted paths. Safe for
// concurrent use; entries can be replaced wholesale on rebuild.
type Manifest struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{entries: make(map[string]string)}
}

// LoadFile reads a manifest.json from disk.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*Manifest, error) {
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("manifest parse: %w", err)
	}
	if entries == nil {
		entries = make(map[string]string)
	}
	return &Manifest{entries: entries}, nil
}

// Resolve returns the fingerprinted path for name, or name unchanged
// when the manifest has no entry for it.
func (m *Manifest) Resolve(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if out, ok := m.entries[name]; ok {
		return out
	}
	return name
}

// Lookup returns the fingerprinted path and whether it exists.
func (m *Manifest) Lookup(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out, ok := m.entries[name]
	return out, ok
}

// Set adds or replaces one entry.
func (m *Manifest) Set(name, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = resolved
}

// Replace swaps in a whole new entry set, for manifest reloads.
func (m *Manifest) Replace(entries map[string]string) {
	cp := make(map[string]string, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	m.mu.Lock()
	m.entries = cp
	m.mu.Unlock()
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
