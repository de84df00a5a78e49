package reflection_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/junioryono/refdi/internal/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorInvoker_Call(t *testing.T) {
	invoker := reflection.NewConstructorInvoker(nil)

	t.Run("single result", func(t *testing.T) {
		got, err := invoker.Call(NewDatabase, []any{"postgres://"})
		require.NoError(t, err)
		assert.Equal(t, &Database{ConnectionString: "postgres://"}, got)
	})

	t.Run("value and nil error", func(t *testing.T) {
		db := &Database{}
		got, err := invoker.Call(NewUserServiceWithError, []any{db})
		require.NoError(t, err)
		assert.Same(t, db, got.(*UserService).DB)
	})

	t.Run("returned error", func(t *testing.T) {
		_, err := invoker.Call(NewUserServiceWithError, []any{nil})
		assert.EqualError(t, err, "database is required")
	})

	t.Run("error only", func(t *testing.T) {
		boom := errors.New("boom")
		got, err := invoker.Call(func() error { return boom }, nil)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, boom)

		got, err = invoker.Call(func() error { return nil }, nil)
		assert.Nil(t, got)
		assert.NoError(t, err)
	})

	t.Run("no results", func(t *testing.T) {
		called := false
		got, err := invoker.Call(func() { called = true }, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.True(t, called)
	})

	t.Run("nil argument becomes zero value", func(t *testing.T) {
		got, err := invoker.Call(NewUserService, []any{nil, nil})
		require.NoError(t, err)
		assert.Nil(t, got.(*UserService).DB)
		assert.Nil(t, got.(*UserService).Logger)
	})

	t.Run("interface argument", func(t *testing.T) {
		logger := &ConsoleLogger{}
		got, err := invoker.Call(NewUserService, []any{nil, logger})
		require.NoError(t, err)
		assert.Same(t, logger, got.(*UserService).Logger)
	})

	t.Run("variadic", func(t *testing.T) {
		join := func(parts ...string) string { return strings.Join(parts, "-") }
		got, err := invoker.Call(join, []any{[]string{"a", "b"}})
		require.NoError(t, err)
		assert.Equal(t, "a-b", got)
	})

	t.Run("wrong argument count", func(t *testing.T) {
		_, err := invoker.Call(NewDatabase, []any{})
		assert.ErrorIs(t, err, reflection.ErrArgumentCount)
	})

	t.Run("wrong argument type", func(t *testing.T) {
		_, err := invoker.Call(NewDatabase, []any{42})
		assert.ErrorIs(t, err, reflection.ErrArgumentType)
	})
}

func TestConstructorInvoker_Build(t *testing.T) {
	analyzer := reflection.New()
	invoker := reflection.NewConstructorInvoker(analyzer)
	assert.Same(t, analyzer, invoker.Analyzer())

	t.Run("pointer", func(t *testing.T) {
		info, err := analyzer.AnalyzeStruct(reflect.TypeOf(&UserService{}))
		require.NoError(t, err)

		db := &Database{}
		logger := &ConsoleLogger{}
		got, err := invoker.Build(info, []any{db, logger})
		require.NoError(t, err)

		svc, ok := got.(*UserService)
		require.True(t, ok, "expected a pointer")
		assert.Same(t, db, svc.DB)
		assert.Same(t, logger, svc.Logger)
		assert.Empty(t, svc.Name)
	})

	t.Run("value", func(t *testing.T) {
		info, err := analyzer.AnalyzeStruct(reflect.TypeOf(TokenService{}))
		require.NoError(t, err)

		got, err := invoker.Build(info, []any{"https://example.com", "Example", 7})
		require.NoError(t, err)

		svc, ok := got.(TokenService)
		require.True(t, ok, "expected a struct value")
		assert.Equal(t, "https://example.com", svc.URL)
		assert.Equal(t, "Example", svc.Label)
		assert.Equal(t, 7, svc.Extra)
		assert.Nil(t, svc.Ignored)
	})

	t.Run("wrong field type", func(t *testing.T) {
		info, err := analyzer.AnalyzeStruct(reflect.TypeOf(TokenService{}))
		require.NoError(t, err)

		_, err = invoker.Build(info, []any{1, "Example", nil})
		assert.ErrorIs(t, err, reflection.ErrArgumentType)
		assert.Contains(t, err.Error(), "URL")
	})

	t.Run("wrong field count", func(t *testing.T) {
		info, err := analyzer.AnalyzeStruct(reflect.TypeOf(TokenService{}))
		require.NoError(t, err)

		_, err = invoker.Build(info, []any{"only one"})
		assert.ErrorIs(t, err, reflection.ErrArgumentCount)
	})
}
