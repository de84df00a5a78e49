package testutil

import (
	"testing"

	"github.com/junioryono/refdi"
	"github.com/stretchr/testify/require"
)

// InjectorBuilder provides a fluent interface for building test injectors
type InjectorBuilder struct {
	t            *testing.T
	declarations []any
	options      []refdi.InjectorOption
}

// NewInjectorBuilder creates a new InjectorBuilder
func NewInjectorBuilder(t *testing.T) *InjectorBuilder {
	return &InjectorBuilder{t: t}
}

// With adds declarations
func (b *InjectorBuilder) With(declarations ...any) *InjectorBuilder {
	b.declarations = append(b.declarations, declarations...)
	return b
}

// WithValue adds a value provider
func (b *InjectorBuilder) WithValue(token, value any, opts ...refdi.ProviderOption) *InjectorBuilder {
	return b.With(refdi.Value(token, value, opts...))
}

// WithFactory adds a factory provider
func (b *InjectorBuilder) WithFactory(token, fn any, opts ...refdi.ProviderOption) *InjectorBuilder {
	return b.With(refdi.Factory(token, fn, opts...))
}

// WithParent makes the built injector a child of parent
func (b *InjectorBuilder) WithParent(parent *refdi.Injector) *InjectorBuilder {
	b.options = append(b.options, refdi.WithParent(parent))
	return b
}

// WithOptions adds injector options
func (b *InjectorBuilder) WithOptions(opts ...refdi.InjectorOption) *InjectorBuilder {
	b.options = append(b.options, opts...)
	return b
}

// Declarations returns the collected declarations
func (b *InjectorBuilder) Declarations() []any {
	return b.declarations
}

// TryBuild creates the injector. It is closed when the test ends.
func (b *InjectorBuilder) TryBuild() (*refdi.Injector, error) {
	inj, err := refdi.ResolveAndCreate(b.declarations, b.options...)
	if err != nil {
		return nil, err
	}

	b.t.Cleanup(func() {
		require.NoError(b.t, inj.Close())
	})

	return inj, nil
}

// Build creates the injector and fails the test if there's an error
func (b *InjectorBuilder) Build() *refdi.Injector {
	b.t.Helper()
	inj, err := b.TryBuild()
	require.NoError(b.t, err, "failed to build injector")
	return inj
}

// MustResolveAll resolves declarations and fails the test on error
func MustResolveAll(t *testing.T, declarations ...any) []*refdi.ResolvedProvider {
	t.Helper()
	providers, err := refdi.ResolveAll(declarations...)
	require.NoError(t, err, "failed to resolve declarations")
	return providers
}
