package testutil

import (
	"testing"

	"github.com/junioryono/refdi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertResolvable checks that T can be resolved from inj
func AssertResolvable[T any](t *testing.T, inj *refdi.Injector) T {
	t.Helper()
	v, err := refdi.Resolve[T](inj)
	require.NoError(t, err, "failed to resolve %s", refdi.TypeOf[T]())
	require.NotNil(t, v, "resolved value is nil")
	return v
}

// AssertTokenResolvable checks that token resolves to a T
func AssertTokenResolvable[T any](t *testing.T, inj *refdi.Injector, token any) T {
	t.Helper()
	v, err := refdi.ResolveToken[T](inj, token)
	require.NoError(t, err, "failed to resolve token %v", token)
	return v
}

// AssertNoProvider checks that resolving token fails with a NoProviderError
func AssertNoProvider(t *testing.T, inj *refdi.Injector, token any) {
	t.Helper()
	_, err := inj.Get(token)
	assert.Error(t, err)
	assert.True(t, refdi.IsNoProvider(err), "expected no provider error, got: %v", err)
}

// AssertCyclic checks if an error is a cyclic dependency error
func AssertCyclic(t *testing.T, err error) {
	t.Helper()
	assert.Error(t, err)
	assert.True(t, refdi.IsCyclic(err), "expected cyclic dependency error, got: %v", err)
}

// AssertDependencyKeys checks the dependency keys of f in order
func AssertDependencyKeys(t *testing.T, f *refdi.ResolvedFactory, tokens ...any) {
	t.Helper()
	require.NotNil(t, f)
	require.Len(t, f.Dependencies, len(tokens), "dependency count")

	for i, token := range tokens {
		key, err := refdi.KeyFor(token)
		require.NoError(t, err)
		assert.Same(t, key, f.Dependencies[i].Key, "dependency %d", i)
	}
}

// AssertKeys checks the keys of providers in order
func AssertKeys(t *testing.T, providers []*refdi.ResolvedProvider, tokens ...any) {
	t.Helper()
	require.Len(t, providers, len(tokens), "provider count")

	for i, token := range tokens {
		key, err := refdi.KeyFor(token)
		require.NoError(t, err)
		assert.Same(t, key, providers[i].Key, "provider %d", i)
	}
}

// AssertPanicsWithError checks if a function panics with specific error
func AssertPanicsWithError(t *testing.T, expectedError error, f func(), msgAndArgs ...any) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			assert.Fail(t, "function did not panic", msgAndArgs...)
			return
		}

		err, ok := r.(error)
		if !ok {
			assert.Fail(t, "panic value is not an error", msgAndArgs...)
			return
		}

		assert.ErrorIs(t, err, expectedError, msgAndArgs...)
	}()
	f()
}

// AssertErrorType checks if an error is of a specific type
func AssertErrorType[T error](t *testing.T, err error, msgAndArgs ...any) T {
	t.Helper()
	var target T
	assert.ErrorAs(t, err, &target, msgAndArgs...)
	return target
}
