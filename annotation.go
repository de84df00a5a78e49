package refdi

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// AnnotationKind enumerates the annotations that can be attached to a
// constructor or factory parameter.
type AnnotationKind int

const (
	// KindType names the parameter's type, which doubles as its token.
	KindType AnnotationKind = iota
	// KindInject overrides the token.
	KindInject
	// KindOptional allows the dependency to be missing.
	KindOptional
	// KindSelf limits lookup to the requesting injector.
	KindSelf
	// KindHost limits lookup to the nearest host injector.
	KindHost
	// KindSkipSelf starts lookup at the parent injector.
	KindSkipSelf
	// KindDependency carries arbitrary attributes and, optionally, a token.
	KindDependency
)

func (k AnnotationKind) String() string {
	switch k {
	case KindType:
		return "Type"
	case KindInject:
		return "Inject"
	case KindOptional:
		return "Optional"
	case KindSelf:
		return "Self"
	case KindHost:
		return "Host"
	case KindSkipSelf:
		return "SkipSelf"
	case KindDependency:
		return "Dependency"
	default:
		return fmt.Sprintf("AnnotationKind(%d)", int(k))
	}
}

// Annotation is one piece of parameter metadata. The set of implementations
// is closed; use the constructors below.
type Annotation interface {
	Kind() AnnotationKind
	String() string
	annotation()
}

var (
	_ Annotation = TypeAnnotation{}
	_ Annotation = InjectAnnotation{}
	_ Annotation = OptionalAnnotation{}
	_ Annotation = SelfAnnotation{}
	_ Annotation = HostAnnotation{}
	_ Annotation = SkipSelfAnnotation{}
	_ Annotation = DependencyAnnotation{}
)

// TypeAnnotation records the declared type of a parameter.
type TypeAnnotation struct {
	Type reflect.Type
}

// InjectAnnotation names the token to inject.
type InjectAnnotation struct {
	Token any
}

// OptionalAnnotation marks a dependency that may be absent.
type OptionalAnnotation struct{}

// SelfAnnotation restricts lookup to the requesting injector.
type SelfAnnotation struct{}

// HostAnnotation restricts lookup to injectors up to the nearest host.
type HostAnnotation struct{}

// SkipSelfAnnotation starts lookup at the requesting injector's parent.
type SkipSelfAnnotation struct{}

// DependencyAnnotation is a generic annotation. It contributes Token when set
// and is always kept in the dependency's Properties.
type DependencyAnnotation struct {
	Token any
	Attrs map[string]string
}

func (TypeAnnotation) Kind() AnnotationKind       { return KindType }
func (InjectAnnotation) Kind() AnnotationKind     { return KindInject }
func (OptionalAnnotation) Kind() AnnotationKind   { return KindOptional }
func (SelfAnnotation) Kind() AnnotationKind       { return KindSelf }
func (HostAnnotation) Kind() AnnotationKind       { return KindHost }
func (SkipSelfAnnotation) Kind() AnnotationKind   { return KindSkipSelf }
func (DependencyAnnotation) Kind() AnnotationKind { return KindDependency }

func (TypeAnnotation) annotation()       {}
func (InjectAnnotation) annotation()     {}
func (OptionalAnnotation) annotation()   {}
func (SelfAnnotation) annotation()       {}
func (HostAnnotation) annotation()       {}
func (SkipSelfAnnotation) annotation()   {}
func (DependencyAnnotation) annotation() {}

func (a TypeAnnotation) String() string   { return formatType(a.Type) }
func (a InjectAnnotation) String() string { return "@Inject(" + formatToken(a.Token) + ")" }
func (OptionalAnnotation) String() string { return "@Optional()" }
func (SelfAnnotation) String() string     { return "@Self()" }
func (HostAnnotation) String() string     { return "@Host()" }
func (SkipSelfAnnotation) String() string { return "@SkipSelf()" }

func (a DependencyAnnotation) String() string {
	parts := make([]string, 0, len(a.Attrs)+1)
	if a.Token != nil {
		parts = append(parts, formatToken(a.Token))
	}
	for _, k := range slices.Sorted(maps.Keys(a.Attrs)) {
		parts = append(parts, k+"="+a.Attrs[k])
	}
	return "@Dependency(" + strings.Join(parts, ", ") + ")"
}

// Type annotates a parameter with its declared type.
func Type(t reflect.Type) TypeAnnotation { return TypeAnnotation{Type: t} }

// Inject annotates a parameter with an explicit token.
func Inject(token any) InjectAnnotation { return InjectAnnotation{Token: token} }

// Optional marks a parameter as optional.
func Optional() OptionalAnnotation { return OptionalAnnotation{} }

// Self restricts a parameter to the requesting injector.
func Self() SelfAnnotation { return SelfAnnotation{} }

// Host restricts a parameter to injectors up to the nearest host.
func Host() HostAnnotation { return HostAnnotation{} }

// SkipSelf starts a parameter's lookup at the parent injector.
func SkipSelf() SkipSelfAnnotation { return SkipSelfAnnotation{} }

// Attribute creates a generic dependency annotation. token may be nil.
func Attribute(token any, attrs map[string]string) DependencyAnnotation {
	return DependencyAnnotation{Token: token, Attrs: maps.Clone(attrs)}
}

// Param is the metadata attached to one parameter. It is either a bare token
// (Bare), an annotation list (Annotated), or blank when nothing is known
// about the parameter.
type Param struct {
	bare   any
	list   []Annotation
	isList bool
}

// Bare describes a parameter by a single token or annotation. Bare(nil) is
// blank.
func Bare(token any) Param {
	return Param{bare: token}
}

// Annotated describes a parameter by an ordered annotation list.
func Annotated(annotations ...Annotation) Param {
	return Param{list: slices.Clone(annotations), isList: true}
}

// IsBlank reports whether nothing is known about the parameter.
func (p Param) IsBlank() bool {
	return !p.isList && p.bare == nil
}

// IsList reports whether the parameter carries an annotation list.
func (p Param) IsList() bool {
	return p.isList
}

// Token returns the bare token of a non-list parameter.
func (p Param) Token() any {
	return p.bare
}

// Annotations returns a copy of the annotation list.
func (p Param) Annotations() []Annotation {
	return slices.Clone(p.list)
}

func (p Param) String() string {
	if p.IsBlank() {
		return "?"
	}
	if !p.isList {
		return formatToken(p.bare)
	}
	parts := make([]string, len(p.list))
	for i, a := range p.list {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}
