package refdi

import (
	"fmt"
	"reflect"
	"sync"
)

// Key is the stable identity of a token. Keys are created by a KeyRegistry;
// equal tokens always map to the same *Key and IDs grow in creation order.
type Key struct {
	// Token is the concrete token the key was created for.
	Token any

	// ID is unique within the registry that created the key.
	ID int
}

// DisplayName renders the key's token for diagnostics.
func (k *Key) DisplayName() string {
	if k == nil {
		return "<nil>"
	}
	return formatToken(k.Token)
}

func (k *Key) String() string {
	if k == nil {
		return "Key(<nil>)"
	}
	return fmt.Sprintf("Key(%s#%d)", k.DisplayName(), k.ID)
}

// KeyRegistry maps tokens to keys. It is safe for concurrent use.
type KeyRegistry struct {
	mu   sync.RWMutex
	keys map[any]*Key
}

// NewKeyRegistry creates an empty registry.
func NewKeyRegistry() *KeyRegistry {
	return &KeyRegistry{
		keys: make(map[any]*Key),
	}
}

var defaultKeys = NewKeyRegistry()

// DefaultKeys returns the process-wide registry used by the package-level
// functions.
func DefaultKeys() *KeyRegistry {
	return defaultKeys
}

// KeyFor returns the key for token from the default registry.
func KeyFor(token any) (*Key, error) {
	return defaultKeys.Get(token)
}

// Get returns the key for token, creating it on first use. A *Key is
// returned unchanged and a *ForwardRef is forced first.
func (r *KeyRegistry) Get(token any) (*Key, error) {
	if k, ok := token.(*Key); ok && k != nil {
		return k, nil
	}

	token = ResolveForwardRef(token)
	if token == nil {
		return nil, InvalidTokenError{Token: token, Cause: ErrTokenNil}
	}
	if !reflect.ValueOf(token).Comparable() {
		return nil, InvalidTokenError{Token: token, Cause: ErrTokenNotComparable}
	}

	r.mu.RLock()
	k, ok := r.keys[token]
	r.mu.RUnlock()
	if ok {
		return k, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have won the race.
	if k, ok := r.keys[token]; ok {
		return k, nil
	}

	k = &Key{Token: token, ID: len(r.keys)}
	r.keys[token] = k
	return k, nil
}

// NumKeys returns the number of keys created so far.
func (r *KeyRegistry) NumKeys() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}
