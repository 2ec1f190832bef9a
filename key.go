package gcptr

import (
	"fmt"
	"reflect"
)

// Kind tells whether an allocation holds a single value or an array.
type Kind uint8

const (
	// KindScalar is a single element.
	KindScalar Kind = iota
	// KindArray is a contiguous block of a fixed number of elements.
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Key identifies a handle configuration: an element type and, for arrays, a
// fixed length. Every Key owns an independent registry.
type Key struct {
	Elem   reflect.Type
	Length int // 0 for scalars
}

// KeyOf returns the Key for element type T. A length of 0 selects the scalar
// configuration.
func KeyOf[T any](length int) Key {
	return Key{Elem: reflect.TypeFor[T](), Length: length}
}

// Kind returns KindArray for keys with a positive length.
func (k Key) Kind() Kind {
	if k.Length > 0 {
		return KindArray
	}
	return KindScalar
}

// Count returns the number of elements in one allocation of this key.
func (k Key) Count() int {
	if k.Length > 0 {
		return k.Length
	}
	return 1
}

func (k Key) String() string {
	if k.Elem == nil {
		return "<nil>"
	}
	if k.Length > 0 {
		return fmt.Sprintf("[%d]%s", k.Length, k.Elem)
	}
	return k.Elem.String()
}
