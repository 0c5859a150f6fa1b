package vendors

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu     sync.RWMutex
	vendorRegistry = make(map[string]NewFunc)
)

// Register adds a new gateway constructor to the registry.
// This is typically called from the vendor's package init() function.
func Register(name string, newFunc NewFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := vendorRegistry[name]; exists {
		return
	}
	vendorRegistry[name] = newFunc
}

// Get returns the constructor of the gateway registered with the given name.
func Get(name string) (NewFunc, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	newFunc, exists := vendorRegistry[name]
	if !exists || newFunc == nil {
		return nil, fmt.Errorf("no vendor registered with name: %s", name)
	}
	return newFunc, nil
}

// Names lists registered vendors in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(vendorRegistry))
	for name := range vendorRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
