// Package tags attaches labels and "liked by" markers to any registered
// entity kind without that entity's schema knowing about it. The association
// is a (kind, id) pair with no foreign key on the owner side: attaching to a
// nonexistent owner succeeds, duplicates are permitted, and deleting an owner
// leaves its associations behind.
package tags

import (
	"sort"
	"sync"

	"github.com/safar/go-storefront/internal/database"
)

// Kind discriminates which entity type an association points at. Kinds exist
// only through Register; resolving an unregistered name is a programming
// error.
type Kind string

var (
	registryMu sync.RWMutex
	registry   = map[Kind]struct{}{}
)

// Register makes an entity kind taggable and likeable. Call it once per kind
// at package init.
func Register(name string) Kind {
	kind := Kind(name)
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = struct{}{}
	return kind
}

// Resolve maps a kind name to its registered Kind.
func Resolve(name string) (Kind, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kind := Kind(name)
	if _, ok := registry[kind]; !ok {
		return "", database.Configurationf("owner kind %q is not registered", name)
	}
	return kind, nil
}

// Registered reports whether the kind went through Register.
func Registered(kind Kind) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[kind]
	return ok
}

// RegisteredKinds returns every registered kind name, sorted.
func RegisteredKinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for kind := range registry {
		names = append(names, string(kind))
	}
	sort.Strings(names)
	return names
}
