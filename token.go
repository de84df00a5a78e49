package refdi

import (
	"reflect"

	"github.com/google/uuid"
)

// OpaqueToken is a token for values that have no type of their own, such as
// configuration strings or feature flags.
//
// OpaqueToken is a comparable value: copies of one token are equal, while two
// tokens created with the same description are distinct.
//
//	var APIURL = refdi.NewOpaqueToken("api url")
//
//	refdi.Value(APIURL, "https://example.com")
type OpaqueToken struct {
	id   uuid.UUID
	desc string
}

// NewOpaqueToken creates a token with a fresh identity.
func NewOpaqueToken(desc string) OpaqueToken {
	return OpaqueToken{id: uuid.New(), desc: desc}
}

// ID returns the token's identity.
func (t OpaqueToken) ID() uuid.UUID {
	return t.id
}

// Description returns the description the token was created with.
func (t OpaqueToken) Description() string {
	return t.desc
}

func (t OpaqueToken) String() string {
	return "Token " + t.desc
}

// TypeOf returns the reflect.Type of T for use as a class token. Interface
// types are supported:
//
//	refdi.Class(refdi.TypeOf[Logger](), refdi.TypeOf[*ConsoleLogger]())
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
