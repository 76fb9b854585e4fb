// Package networktables is an in-process hierarchical key-value store that mechanisms publish
// telemetry to, plus an HTTP transport for dashboards and operator tuning.
package networktables

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"go.viam.com/yams/telemetry"
)

const separator = "/"

// Instance holds every published value keyed by full path. It is safe for concurrent use so that
// the transport can serve from its own goroutine while the control loop publishes.
type Instance struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewInstance returns an empty store.
func NewInstance() *Instance {
	return &Instance{entries: map[string]any{}}
}

// Table returns the table at path. Tables are created implicitly.
func (inst *Instance) Table(path string) telemetry.Table {
	return &Table{inst: inst, path: cleanPath(path)}
}

// Entries returns a copy of every published value.
func (inst *Instance) Entries() map[string]any {
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	out := make(map[string]any, len(inst.entries))
	for k, v := range inst.entries {
		out[k] = v
	}
	return out
}

// TableEntries returns the values directly under path, keyed by their key within that table.
func (inst *Instance) TableEntries(path string) map[string]any {
	prefix := cleanPath(path) + separator
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	out := map[string]any{}
	for k, v := range inst.entries {
		if rest, ok := strings.CutPrefix(k, prefix); ok && !strings.Contains(rest, separator) {
			out[rest] = v
		}
	}
	return out
}

// Keys returns every full key in sorted order.
func (inst *Instance) Keys() []string {
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	keys := make([]string, 0, len(inst.entries))
	for k := range inst.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Update overwrites an existing value. The new value must have the same type as the old one.
func (inst *Instance) Update(fullKey string, value any) error {
	value, err := normalize(value)
	if err != nil {
		return err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	old, ok := inst.entries[fullKey]
	if !ok {
		return errors.Errorf("no entry %q", fullKey)
	}
	if !sameType(old, value) {
		return errors.Errorf("entry %q holds %T, cannot write %T", fullKey, old, value)
	}
	inst.entries[fullKey] = value
	return nil
}

func (inst *Instance) get(fullKey string) (any, bool) {
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	v, ok := inst.entries[fullKey]
	return v, ok
}

func (inst *Instance) put(fullKey string, value any, onlyIfAbsent bool) error {
	value, err := normalize(value)
	if err != nil {
		return err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if old, ok := inst.entries[fullKey]; ok {
		if !sameType(old, value) {
			return errors.Errorf("entry %q holds %T, cannot write %T", fullKey, old, value)
		}
		if onlyIfAbsent {
			return nil
		}
	}
	inst.entries[fullKey] = value
	return nil
}

func (inst *Instance) remove(fullKey string) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	delete(inst.entries, fullKey)
}

// Table is a view of one path in an Instance.
type Table struct {
	inst *Instance
	path string
}

// Path returns the table path.
func (t *Table) Path() string {
	return t.path
}

// Sub returns the child table called name.
func (t *Table) Sub(name string) telemetry.Table {
	return &Table{inst: t.inst, path: cleanPath(t.path + separator + name)}
}

// SetDefault publishes value unless key already holds one.
func (t *Table) SetDefault(key string, value any) error {
	return t.inst.put(t.fullKey(key), value, true)
}

// Put publishes value under key.
func (t *Table) Put(key string, value any) error {
	return t.inst.put(t.fullKey(key), value, false)
}

// Get returns the value under key.
func (t *Table) Get(key string) (any, bool) {
	return t.inst.get(t.fullKey(key))
}

// Unpublish removes key.
func (t *Table) Unpublish(key string) {
	t.inst.remove(t.fullKey(key))
}

func (t *Table) fullKey(key string) string {
	return t.path + separator + key
}

func cleanPath(path string) string {
	parts := strings.Split(path, separator)
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, separator)
}

// normalize stores every number as a float64. Strings are rejected even when they parse.
func normalize(value any) (any, error) {
	switch v := value.(type) {
	case bool, float64:
		return v, nil
	case string, nil:
		return nil, errors.Errorf("unsupported telemetry value type %T", value)
	}
	f, err := cast.ToFloat64E(value)
	if err != nil {
		return nil, errors.Wrapf(err, "unsupported telemetry value type %T", value)
	}
	return f, nil
}

func sameType(a, b any) bool {
	switch a.(type) {
	case bool:
		_, ok := b.(bool)
		return ok
	case float64:
		_, ok := b.(float64)
		return ok
	}
	return false
}
