package reflection

import (
	"fmt"
	"reflect"
)

// ConstructorInvoker invokes analyzed functions and builds tagged structs
// from already resolved argument values.
type ConstructorInvoker struct {
	analyzer *Analyzer
}

// NewConstructorInvoker creates a new constructor invoker.
func NewConstructorInvoker(analyzer *Analyzer) *ConstructorInvoker {
	if analyzer == nil {
		analyzer = New()
	}
	return &ConstructorInvoker{analyzer: analyzer}
}

// Analyzer returns the analyzer backing the invoker.
func (ci *ConstructorInvoker) Analyzer() *Analyzer {
	return ci.analyzer
}

// Call invokes fn with args. A nil argument becomes the zero value of the
// parameter type. The result is nil for functions without a value result.
func (ci *ConstructorInvoker) Call(fn any, args []any) (any, error) {
	info, err := ci.analyzer.AnalyzeFunc(fn)
	if err != nil {
		return nil, err
	}

	in, err := ci.buildArguments(info, args)
	if err != nil {
		return nil, err
	}

	val := reflect.ValueOf(fn)
	var results []reflect.Value
	if info.Variadic {
		results = val.CallSlice(in)
	} else {
		results = val.Call(in)
	}

	return unpackResults(info, results)
}

// buildArguments converts args to reflect values checked against the
// function's parameter types. The last argument of a variadic function must
// be a slice of the variadic element type, or nil.
func (ci *ConstructorInvoker) buildArguments(info *FuncInfo, args []any) ([]reflect.Value, error) {
	if len(args) != len(info.Parameters) {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrArgumentCount, len(info.Parameters), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, param := range info.Parameters {
		v, err := convertArgument(param.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		in[i] = v
	}

	return in, nil
}

// Build allocates the struct described by info and assigns args to its
// injectable fields in order. A pointer is returned when the struct was
// analyzed through a pointer type.
func (ci *ConstructorInvoker) Build(info *StructInfo, args []any) (any, error) {
	if len(args) != len(info.Fields) {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrArgumentCount, len(info.Fields), len(args))
	}

	structPtr := reflect.New(info.Type)
	structValue := structPtr.Elem()

	for i, field := range info.Fields {
		v, err := convertArgument(field.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		structValue.Field(field.Index).Set(v)
	}

	if info.IsPointer {
		return structPtr.Interface(), nil
	}
	return structValue.Interface(), nil
}

func convertArgument(t reflect.Type, arg any) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(t), nil
	}

	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(t) {
		if v.Type() != t {
			// Assign to an interface type.
			out := reflect.New(t).Elem()
			out.Set(v)
			return out, nil
		}
		return v, nil
	}

	return reflect.Value{}, fmt.Errorf("%w: want %v, got %v", ErrArgumentType, t, v.Type())
}

// unpackResults maps (), (T), (error) and (T, error) to a value and error.
func unpackResults(info *FuncInfo, results []reflect.Value) (any, error) {
	if info.HasErrorReturn {
		last := results[len(results)-1]
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		results = results[:len(results)-1]
	}

	if len(results) == 0 {
		return nil, nil
	}
	return results[0].Interface(), nil
}
