// Package gomodel provides a central registry for model metadata.
package gomodel

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var (
	globalRegistry = &Registry{
		byName: make(map[string]*ModelInfo),
		byType: make(map[reflect.Type]*ModelInfo),
	}
)

// Registry maintains a mapping between Go struct types and table metadata.
// It is used to look up column information during statement building and hydration.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*ModelInfo
	byType map[reflect.Type]*ModelInfo
}

// Register adds a Go struct type to the global registry as a model.
// Registering the same type twice replaces its metadata.
func Register[T any]() error {
	t := typeOf[T]()

	info, err := ExtractModelInfo(t)
	if err != nil {
		return fmt.Errorf("registering %s: %w", t.Name(), err)
	}

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if existing, ok := globalRegistry.byName[info.Table]; ok {
		if existing.GoType != t {
			return fmt.Errorf("table %q already registered to %s", info.Table, existing.GoType.Name())
		}
	}

	globalRegistry.byName[info.Table] = info
	globalRegistry.byType[t] = info
	return nil
}

// MustRegister is a helper that calls Register and panics if an error occurs.
// It is intended for use during application initialization.
func MustRegister[T any]() {
	if err := Register[T](); err != nil {
		panic(err)
	}
}

// Lookup retrieves ModelInfo for a given table name.
func Lookup(table string) (*ModelInfo, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	info, ok := globalRegistry.byName[table]
	return info, ok
}

// LookupType retrieves ModelInfo for a given Go reflect.Type.
func LookupType(t reflect.Type) (*ModelInfo, bool) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	info, ok := globalRegistry.byType[t]
	return info, ok
}

// LookupByGoName retrieves ModelInfo based on the name of the Go struct.
func LookupByGoName(name string) (*ModelInfo, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	lower := strings.ToLower(name)
	for _, info := range globalRegistry.byType {
		if strings.ToLower(info.GoType.Name()) == lower {
			return info, true
		}
	}
	return nil, false
}

// InfoFor returns the registered metadata of T.
func InfoFor[T any]() (*ModelInfo, error) {
	t := typeOf[T]()
	info, ok := LookupType(t)
	if !ok {
		return nil, &NotRegisteredError{TypeName: t.Name()}
	}
	return info, nil
}

// RegisteredTypes returns a slice containing ModelInfo for all registered types.
func RegisteredTypes() []*ModelInfo {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	result := make([]*ModelInfo, 0, len(globalRegistry.byType))
	for _, info := range globalRegistry.byType {
		result = append(result, info)
	}
	return result
}

// ClearRegistry resets the global registry, removing all registered models.
// This is primarily used for testing purposes.
func ClearRegistry() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.byName = make(map[string]*ModelInfo)
	globalRegistry.byType = make(map[reflect.Type]*ModelInfo)
}

func typeOf[T any]() reflect.Type {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
