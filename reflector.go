package refdi

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/junioryono/refdi/internal/reflection"
)

// FactoryFunc produces a value from its resolved dependencies, passed in
// dependency order.
type FactoryFunc func(args ...any) (any, error)

var factoryFuncType = reflect.TypeOf(FactoryFunc(nil))

// Reflector answers questions about constructors and factory functions.
type Reflector interface {
	// Parameters returns one Param per parameter of target, a reflect.Type
	// or a function. A nil slice means nothing is known about target.
	Parameters(target any) ([]Param, error)

	// Factory returns a function that constructs t.
	Factory(t reflect.Type) (FactoryFunc, error)
}

// FuncAdapter is implemented by reflectors that can turn a Go function into
// a FactoryFunc.
type FuncAdapter interface {
	Adapt(fn any) (FactoryFunc, error)
}

var (
	_ Reflector   = (*TypeReflector)(nil)
	_ FuncAdapter = (*TypeReflector)(nil)
)

// funcKey identifies a function by its code pointer.
type funcKey uintptr

// TypeReflector is the default Reflector. It combines an explicit metadata
// table with Go reflection:
//
//   - function parameters are described by their types; parameters of type
//     any are blank.
//   - structs (or pointers to structs) without a registered constructor are
//     described by their exported fields carrying an inject tag.
//   - constructors registered with RegisterConstructor describe and build
//     their type.
//
// TypeReflector is safe for concurrent use.
type TypeReflector struct {
	mu       sync.RWMutex
	params   map[any][]Param
	ctors    map[reflect.Type]any
	invoker  *reflection.ConstructorInvoker
	analyzer *reflection.Analyzer
}

// NewTypeReflector creates a reflector with an empty metadata table.
func NewTypeReflector() *TypeReflector {
	analyzer := reflection.New()
	return &TypeReflector{
		params:   make(map[any][]Param),
		ctors:    make(map[reflect.Type]any),
		invoker:  reflection.NewConstructorInvoker(analyzer),
		analyzer: analyzer,
	}
}

var defaultReflector = NewTypeReflector()

// DefaultReflector returns the process-wide reflector used by resolvers that
// are not given one.
func DefaultReflector() *TypeReflector {
	return defaultReflector
}

// Annotate records explicit parameter metadata for target, a reflect.Type or
// a function. It takes precedence over anything derived by reflection.
// Functions are identified by their code pointer, so every closure created
// from the same literal shares the metadata.
func (r *TypeReflector) Annotate(target any, params ...Param) error {
	key, err := metadataKey(target)
	if err != nil {
		return ReflectionError{Target: target, Operation: "annotate", Cause: err}
	}

	if fn := reflect.ValueOf(target); fn.Kind() == reflect.Func && fn.Type().NumIn() != len(params) {
		return ReflectionError{
			Target:    target,
			Operation: "annotate",
			Cause:     fmt.Errorf("%w: want %d, got %d", ErrArgumentCount, fn.Type().NumIn(), len(params)),
		}
	}

	r.mu.Lock()
	r.params[key] = slices.Clone(params)
	r.mu.Unlock()
	return nil
}

// RegisterConstructor makes ctor the way to build t. ctor must be a function
// whose first result is assignable to t, optionally followed by an error.
func (r *TypeReflector) RegisterConstructor(t reflect.Type, ctor any) error {
	if t == nil {
		return ReflectionError{Target: t, Operation: "register", Cause: ErrNotAType}
	}

	info, err := r.analyzer.AnalyzeFunc(ctor)
	if err != nil {
		return ReflectionError{Target: t, Operation: "register", Cause: err}
	}
	if len(info.Returns) == 0 || info.Returns[0].IsError || !info.Returns[0].Type.AssignableTo(t) {
		return ReflectionError{
			Target:    t,
			Operation: "register",
			Cause:     fmt.Errorf("%w: %s", ErrConstructorType, formatType(info.Type)),
		}
	}

	r.mu.Lock()
	r.ctors[t] = ctor
	r.mu.Unlock()
	return nil
}

// Parameters implements Reflector.
func (r *TypeReflector) Parameters(target any) ([]Param, error) {
	key, err := metadataKey(target)
	if err != nil {
		return nil, ReflectionError{Target: target, Operation: "parameters", Cause: err}
	}

	r.mu.RLock()
	params, ok := r.params[key]
	r.mu.RUnlock()
	if ok {
		return slices.Clone(params), nil
	}

	if t, ok := target.(reflect.Type); ok {
		return r.typeParameters(t)
	}
	return r.funcParameters(target)
}

func (r *TypeReflector) typeParameters(t reflect.Type) ([]Param, error) {
	if ctor, ok := r.constructor(t); ok {
		return r.Parameters(ctor)
	}

	if !isStructType(t) {
		return nil, nil
	}

	info, err := r.analyzer.AnalyzeStruct(t)
	if err != nil {
		return nil, ReflectionError{Target: t, Operation: "parameters", Cause: err}
	}
	if len(info.Fields) == 0 {
		return nil, nil
	}

	params := make([]Param, len(info.Fields))
	for i, field := range info.Fields {
		params[i] = fieldParam(field)
	}
	return params, nil
}

func (r *TypeReflector) funcParameters(fn any) ([]Param, error) {
	if reflect.TypeOf(fn).ConvertibleTo(factoryFuncType) {
		return nil, nil
	}

	info, err := r.analyzer.AnalyzeFunc(fn)
	if err != nil {
		return nil, ReflectionError{Target: fn, Operation: "parameters", Cause: err}
	}

	params := make([]Param, len(info.Parameters))
	for i, p := range info.Parameters {
		if p.Untyped {
			continue
		}
		params[i] = Annotated(Type(p.Type))
	}
	return params, nil
}

// fieldParam converts an inject-tagged field into parameter metadata.
func fieldParam(field reflection.FieldInfo) Param {
	var anns []Annotation
	if !field.Untyped {
		anns = append(anns, Type(field.Type))
	}

	tag := field.Tag
	if tag.Token != "" {
		anns = append(anns, Inject(tag.Token))
	}
	if tag.Optional {
		anns = append(anns, Optional())
	}
	if tag.Self {
		anns = append(anns, Self())
	}
	if tag.Host {
		anns = append(anns, Host())
	}
	if tag.SkipSelf {
		anns = append(anns, SkipSelf())
	}
	if len(tag.Attrs) > 0 {
		anns = append(anns, Attribute(nil, tag.Attrs))
	}

	if len(anns) == 0 {
		return Param{}
	}
	return Annotated(anns...)
}

// Factory implements Reflector.
func (r *TypeReflector) Factory(t reflect.Type) (FactoryFunc, error) {
	if t == nil {
		return nil, ReflectionError{Target: t, Operation: "factory", Cause: ErrNotAType}
	}

	if ctor, ok := r.constructor(t); ok {
		return r.Adapt(ctor)
	}

	if !isStructType(t) {
		return nil, ReflectionError{Target: t, Operation: "factory", Cause: ErrNoConstructor}
	}

	info, err := r.analyzer.AnalyzeStruct(t)
	if err != nil {
		return nil, ReflectionError{Target: t, Operation: "factory", Cause: err}
	}

	return func(args ...any) (any, error) {
		return r.invoker.Build(info, args)
	}, nil
}

// Adapt implements FuncAdapter.
func (r *TypeReflector) Adapt(fn any) (FactoryFunc, error) {
	return adaptFunc(r.invoker, fn)
}

func (r *TypeReflector) constructor(t reflect.Type) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.ctors[t]
	return ctor, ok
}

var defaultInvoker = reflection.NewConstructorInvoker(nil)

// FuncFactory adapts a Go function to a FactoryFunc. The function may return
// nothing, a value, an error, or a value and an error. Arguments are checked
// against the parameter types when the factory is called; a nil argument
// becomes the parameter's zero value.
func FuncFactory(fn any) (FactoryFunc, error) {
	return adaptFunc(defaultInvoker, fn)
}

func adaptFunc(invoker *reflection.ConstructorInvoker, fn any) (FactoryFunc, error) {
	if f, ok := fn.(FactoryFunc); ok && f != nil {
		return f, nil
	}

	v := reflect.ValueOf(fn)
	if v.Kind() == reflect.Func && !v.IsNil() && v.Type().ConvertibleTo(factoryFuncType) {
		return v.Convert(factoryFuncType).Interface().(FactoryFunc), nil
	}

	if _, err := invoker.Analyzer().AnalyzeFunc(fn); err != nil {
		return nil, ReflectionError{Target: fn, Operation: "adapt", Cause: err}
	}

	return func(args ...any) (any, error) {
		return invoker.Call(fn, args)
	}, nil
}

func metadataKey(target any) (any, error) {
	if t, ok := target.(reflect.Type); ok {
		if t == nil {
			return nil, ErrNotAType
		}
		return t, nil
	}

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, ErrNotAFunction
	}
	return funcKey(v.Pointer()), nil
}

func isStructType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}
