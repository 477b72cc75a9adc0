package codec

import (
	"fmt"
	"sort"
	"sync"
)

var (
	mu      sync.RWMutex
	writers = make(map[string]Builder)
)

// Register makes a backend available under name. Backends register
// themselves from init, so importing a backend package is enough to use it.
func Register(name string, b Builder) {
	mu.Lock()
	defer mu.Unlock()
	writers[name] = b
}

// Build creates an unopened Writer of the named backend.
func Build(name string) (Writer, error) {
	mu.RLock()
	b, ok := writers[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("codec: can't find %s writer", name)
	}
	return b(), nil
}

// Names lists the registered backends.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(writers))
	for name := range writers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
