package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	errType = reflect.TypeOf((*error)(nil)).Elem()
	anyType = reflect.TypeOf((*any)(nil)).Elem()
)

var (
	ErrNotAFunction   = errors.New("factory must be a function")
	ErrNotAStruct     = errors.New("type is not a struct or pointer to struct")
	ErrTooManyReturns = errors.New("factory must return at most a value and an error")
	ErrArgumentCount  = errors.New("factory called with the wrong number of arguments")
	ErrArgumentType   = errors.New("factory argument has the wrong type")
)

// Analyzer performs reflection-based analysis of functions and struct types.
// It caches analysis results for performance.
type Analyzer struct {
	mu      sync.RWMutex
	funcs   map[reflect.Type]*FuncInfo
	structs map[reflect.Type]*StructInfo
}

// FuncInfo contains analyzed information about a function.
type FuncInfo struct {
	Type           reflect.Type
	Parameters     []ParameterInfo
	Returns        []ReturnInfo
	Variadic       bool
	HasErrorReturn bool // Returns error as last value
}

// ParameterInfo describes a function parameter.
type ParameterInfo struct {
	Type  reflect.Type
	Index int

	// Untyped is true for parameters of the empty interface type, which
	// carry no usable token.
	Untyped bool
}

// ReturnInfo describes a function return value.
type ReturnInfo struct {
	Type    reflect.Type
	Index   int
	IsError bool
}

// StructInfo contains analyzed information about a struct with inject tags.
type StructInfo struct {
	Type      reflect.Type // the struct type, never a pointer
	IsPointer bool         // analyzed through a pointer type
	Fields    []FieldInfo
}

// FieldInfo describes one injectable field.
type FieldInfo struct {
	Name    string
	Type    reflect.Type
	Index   int
	Tag     TagInfo
	Untyped bool
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		funcs:   make(map[reflect.Type]*FuncInfo),
		structs: make(map[reflect.Type]*StructInfo),
	}
}

// AnalyzeFunc analyzes a function's parameters and returns.
func (a *Analyzer) AnalyzeFunc(fn any) (*FuncInfo, error) {
	if fn == nil {
		return nil, ErrNotAFunction
	}

	val := reflect.ValueOf(fn)
	if val.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w, got %v", ErrNotAFunction, val.Type())
	}
	if val.IsNil() {
		return nil, fmt.Errorf("%w, got nil %v", ErrNotAFunction, val.Type())
	}

	// The analysis depends only on the signature, so closures share entries.
	typ := val.Type()

	a.mu.RLock()
	if cached, ok := a.funcs[typ]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	info := &FuncInfo{
		Type:     typ,
		Variadic: typ.IsVariadic(),
	}

	info.Parameters = make([]ParameterInfo, typ.NumIn())
	for i := 0; i < typ.NumIn(); i++ {
		paramType := typ.In(i)
		info.Parameters[i] = ParameterInfo{
			Type:    paramType,
			Index:   i,
			Untyped: paramType == anyType,
		}
	}

	if err := a.analyzeReturns(info); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.funcs[typ] = info
	a.mu.Unlock()

	return info, nil
}

// analyzeReturns accepts (), (T), (error) and (T, error).
func (a *Analyzer) analyzeReturns(info *FuncInfo) error {
	typ := info.Type
	if typ.NumOut() > 2 {
		return fmt.Errorf("%w, got %d results", ErrTooManyReturns, typ.NumOut())
	}

	info.Returns = make([]ReturnInfo, 0, typ.NumOut())
	for i := 0; i < typ.NumOut(); i++ {
		retType := typ.Out(i)
		isError := retType == errType && i == typ.NumOut()-1
		if isError {
			info.HasErrorReturn = true
		}
		info.Returns = append(info.Returns, ReturnInfo{
			Type:    retType,
			Index:   i,
			IsError: isError,
		})
	}

	if typ.NumOut() == 2 && !info.HasErrorReturn {
		return fmt.Errorf("%w, second result must be error", ErrTooManyReturns)
	}

	return nil
}

// AnalyzeStruct analyzes the inject-tagged fields of a struct type or a
// pointer to one. Fields without an inject tag are left for the caller.
func (a *Analyzer) AnalyzeStruct(t reflect.Type) (*StructInfo, error) {
	if t == nil {
		return nil, ErrNotAStruct
	}

	a.mu.RLock()
	if cached, ok := a.structs[t]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	info := &StructInfo{Type: t}
	if t.Kind() == reflect.Pointer {
		info.IsPointer = true
		info.Type = t.Elem()
	}
	if info.Type.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNotAStruct, t)
	}

	for i := 0; i < info.Type.NumField(); i++ {
		field := info.Type.Field(i)

		// Skip unexported fields
		if !field.IsExported() {
			continue
		}

		raw, ok := field.Tag.Lookup(TagName)
		if !ok {
			continue
		}

		tag, err := ParseTag(raw)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", info.Type.Name(), field.Name, err)
		}
		if tag.Ignore {
			continue
		}

		info.Fields = append(info.Fields, FieldInfo{
			Name:    field.Name,
			Type:    field.Type,
			Index:   i,
			Tag:     tag,
			Untyped: field.Type == anyType,
		})
	}

	a.mu.Lock()
	a.structs[t] = info
	a.mu.Unlock()

	return info, nil
}
