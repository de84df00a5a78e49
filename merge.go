package refdi

import "slices"

// ProviderMap holds one resolved provider per key and remembers the order in
// which keys were first inserted.
type ProviderMap struct {
	entries map[*Key]*ResolvedProvider
	order   []*Key
}

// NewProviderMap creates an empty map.
func NewProviderMap() *ProviderMap {
	return &ProviderMap{
		entries: make(map[*Key]*ResolvedProvider),
	}
}

// Get returns the provider stored for key.
func (m *ProviderMap) Get(key *Key) (*ResolvedProvider, bool) {
	p, ok := m.entries[key]
	return p, ok
}

// Len returns the number of keys.
func (m *ProviderMap) Len() int {
	return len(m.order)
}

// Keys returns the keys in first-insertion order.
func (m *ProviderMap) Keys() []*Key {
	return slices.Clone(m.order)
}

// Values returns the providers in first-insertion order of their keys. A
// replaced provider takes the position of the one it replaced.
func (m *ProviderMap) Values() []*ResolvedProvider {
	values := make([]*ResolvedProvider, len(m.order))
	for i, k := range m.order {
		values[i] = m.entries[k]
	}
	return values
}

func (m *ProviderMap) set(p *ResolvedProvider) {
	if _, ok := m.entries[p.Key]; !ok {
		m.order = append(m.order, p.Key)
	}
	m.entries[p.Key] = p
}

// MergeResolvedProviders folds providers into m, creating m when it is nil.
//
// The first multi provider for a key is stored as a copy so that later
// contributions never write to the caller's factory slice. Further multi
// providers append their factories in order. A regular provider replaces the
// previous one. Mixing multi and regular providers for one key fails with
// MixingMultiProvidersWithRegularProvidersError; m may already hold the
// providers merged before the failure.
func MergeResolvedProviders(providers []*ResolvedProvider, m *ProviderMap) (*ProviderMap, error) {
	if m == nil {
		m = NewProviderMap()
	}

	for _, p := range providers {
		existing, ok := m.Get(p.Key)
		if !ok {
			if p.Multi {
				m.set(&ResolvedProvider{
					Key:       p.Key,
					Factories: slices.Clone(p.Factories),
					Multi:     true,
				})
			} else {
				m.set(p)
			}
			continue
		}

		if p.Multi != existing.Multi {
			return nil, MixingMultiProvidersWithRegularProvidersError{
				Existing: existing,
				Incoming: p,
			}
		}

		if p.Multi {
			existing.Factories = append(existing.Factories, p.Factories...)
		} else {
			m.set(p)
		}
	}

	return m, nil
}
