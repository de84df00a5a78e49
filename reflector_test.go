package refdi_test

import (
	"errors"
	"testing"

	"github.com/junioryono/refdi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Wheel struct {
	Size int
}

func NewWheel(size int) (*Wheel, error) {
	if size <= 0 {
		return nil, errors.New("wheel size must be positive")
	}
	return &Wheel{Size: size}, nil
}

type Bicycle struct {
	Front *Wheel `inject:""`
	Rear  *Wheel `inject:"-"`
	Bell  string `inject:"token=bell,self"`
	owner string `inject:""`
}

type BadTag struct {
	Field string `inject:"self,host"`
}

func TestTypeReflector_FuncParameters(t *testing.T) {
	r := refdi.NewTypeReflector()

	params, err := r.Parameters(func(w *Wheel, name string, v any) {})
	require.NoError(t, err)
	require.Len(t, params, 3)

	assert.Equal(t, "*Wheel", params[0].String())
	assert.Equal(t, "string", params[1].String())
	assert.True(t, params[2].IsBlank())

	params, err = r.Parameters(func() {})
	require.NoError(t, err)
	assert.NotNil(t, params, "zero parameters is known")
	assert.Empty(t, params)

	params, err = r.Parameters(refdi.FactoryFunc(func(...any) (any, error) { return nil, nil }))
	require.NoError(t, err)
	assert.Nil(t, params, "FactoryFunc parameters are unknown")
}

func TestTypeReflector_StructParameters(t *testing.T) {
	r := refdi.NewTypeReflector()

	params, err := r.Parameters(refdi.TypeOf[*Bicycle]())
	require.NoError(t, err)
	require.Len(t, params, 2, "ignored and unexported fields are skipped")
	assert.Equal(t, "*Wheel", params[0].String())
	assert.Equal(t, "string @Inject(bell) @Self()", params[1].String())

	params, err = r.Parameters(refdi.TypeOf[Wheel]())
	require.NoError(t, err)
	assert.Nil(t, params, "untagged structs have unknown parameters")

	params, err = r.Parameters(refdi.TypeOf[int]())
	require.NoError(t, err)
	assert.Nil(t, params)

	_, err = r.Parameters(refdi.TypeOf[BadTag]())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid inject tag")
	var reflectionErr refdi.ReflectionError
	assert.ErrorAs(t, err, &reflectionErr)
}

func TestTypeReflector_StructFactory(t *testing.T) {
	r := refdi.NewTypeReflector()

	factory, err := r.Factory(refdi.TypeOf[*Bicycle]())
	require.NoError(t, err)

	front := &Wheel{Size: 26}
	v, err := factory(front, "ding")
	require.NoError(t, err)

	bike := v.(*Bicycle)
	assert.Same(t, front, bike.Front)
	assert.Nil(t, bike.Rear)
	assert.Equal(t, "ding", bike.Bell)

	_, err = factory(front)
	assert.ErrorIs(t, err, refdi.ErrArgumentCount)

	_, err = factory("not a wheel", "ding")
	assert.ErrorIs(t, err, refdi.ErrArgumentType)

	v, err = factory(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, v.(*Bicycle).Front, "nil arguments become zero values")
}

func TestTypeReflector_RegisterConstructor(t *testing.T) {
	r := refdi.NewTypeReflector()
	wheel := refdi.TypeOf[*Wheel]()

	require.NoError(t, r.RegisterConstructor(wheel, NewWheel))

	params, err := r.Parameters(wheel)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "int", params[0].String())

	factory, err := r.Factory(wheel)
	require.NoError(t, err)

	v, err := factory(20)
	require.NoError(t, err)
	assert.Equal(t, &Wheel{Size: 20}, v)

	_, err = factory(0)
	assert.EqualError(t, err, "wheel size must be positive")

	t.Run("rejects mismatched constructors", func(t *testing.T) {
		err := r.RegisterConstructor(wheel, func() *Engine { return nil })
		assert.ErrorIs(t, err, refdi.ErrConstructorType)

		err = r.RegisterConstructor(wheel, func() error { return nil })
		assert.ErrorIs(t, err, refdi.ErrConstructorType)

		err = r.RegisterConstructor(wheel, "nope")
		assert.ErrorIs(t, err, refdi.ErrNotAFunction)

		err = r.RegisterConstructor(nil, NewWheel)
		assert.ErrorIs(t, err, refdi.ErrNotAType)
	})

	t.Run("interface types", func(t *testing.T) {
		type Sizer interface{}
		sizer := refdi.TypeOf[Sizer]()
		require.NoError(t, r.RegisterConstructor(sizer, NewWheel))

		factory, err := r.Factory(sizer)
		require.NoError(t, err)
		v, err := factory(3)
		require.NoError(t, err)
		assert.Equal(t, &Wheel{Size: 3}, v)
	})
}

func TestTypeReflector_Annotate(t *testing.T) {
	r := refdi.NewTypeReflector()
	fn := func(a, b string) string { return a + b }

	require.NoError(t, r.Annotate(fn, refdi.Bare("first"), refdi.Annotated(refdi.Inject("second"), refdi.Optional())))

	params, err := r.Parameters(fn)
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "first", params[0].Token())
	assert.True(t, params[1].IsList())

	t.Run("argument count must match", func(t *testing.T) {
		err := r.Annotate(fn, refdi.Bare("only"))
		assert.ErrorIs(t, err, refdi.ErrArgumentCount)
	})

	t.Run("targets must be types or functions", func(t *testing.T) {
		err := r.Annotate("nope")
		assert.ErrorIs(t, err, refdi.ErrNotAFunction)
	})

	t.Run("types take precedence over tags", func(t *testing.T) {
		bicycle := refdi.TypeOf[*Bicycle]()
		require.NoError(t, r.Annotate(bicycle, refdi.Bare("front"), refdi.Bare("bell")))

		params, err := r.Parameters(bicycle)
		require.NoError(t, err)
		assert.Equal(t, "front", params[0].Token())
	})

	t.Run("resolver uses annotations", func(t *testing.T) {
		resolver := refdi.NewResolver(refdi.WithReflector(r))
		f, err := resolver.ResolveFactory(refdi.Factory("joined", fn))
		require.NoError(t, err)
		require.Len(t, f.Dependencies, 2)
		assert.Equal(t, "first", f.Dependencies[0].Key.Token)
		assert.Equal(t, "second", f.Dependencies[1].Key.Token)
		assert.True(t, f.Dependencies[1].Optional)
	})
}

func TestTypeReflector_Factory_NoConstructor(t *testing.T) {
	r := refdi.NewTypeReflector()

	_, err := r.Factory(refdi.TypeOf[string]())
	assert.ErrorIs(t, err, refdi.ErrNoConstructor)

	_, err = r.Factory(nil)
	assert.ErrorIs(t, err, refdi.ErrNotAType)
}

func TestFuncFactory(t *testing.T) {
	tests := []struct {
		name    string
		fn      any
		args    []any
		want    any
		wantErr error
	}{
		{name: "value", fn: func(a, b int) int { return a * b }, args: []any{3, 4}, want: 12},
		{name: "no result", fn: func() {}, want: nil},
		{name: "only error", fn: func() error { return nil }, want: nil},
		{name: "error result", fn: func() (int, error) { return 0, errTest }, wantErr: errTest},
		{name: "variadic", fn: func(xs ...int) int { return len(xs) }, args: []any{[]int{1, 2}}, want: 2},
		{name: "interface argument", fn: func(s interface{ String() string }) string { return s.String() }, args: []any{refdi.NewOpaqueToken("x")}, want: "Token x"},
		{name: "wrong count", fn: func(int) {}, wantErr: refdi.ErrArgumentCount},
		{name: "wrong type", fn: func(int) {}, args: []any{"1"}, wantErr: refdi.ErrArgumentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := refdi.FuncFactory(tt.fn)
			require.NoError(t, err)

			got, err := f(tt.args...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("not a function", func(t *testing.T) {
		_, err := refdi.FuncFactory(42)
		assert.ErrorIs(t, err, refdi.ErrNotAFunction)
	})

	t.Run("factory funcs pass through", func(t *testing.T) {
		ff := refdi.FactoryFunc(func(args ...any) (any, error) { return "raw", nil })
		f, err := refdi.FuncFactory(ff)
		require.NoError(t, err)
		v, _ := f()
		assert.Equal(t, "raw", v)

		f, err = refdi.FuncFactory(func(args ...any) (any, error) { return len(args), nil })
		require.NoError(t, err)
		v, _ = f(1, 2, 3)
		assert.Equal(t, 3, v)
	})
}

var errTest = errors.New("test error")
