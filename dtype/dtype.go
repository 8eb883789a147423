// Package dtype models the element-type descriptors used by both the
// tree adapter (actual data) and the schema AST (declared constraints):
// simple byte-order-prefixed codes such as "<f8" or "S12", and compound
// record layouts with named, offset fields.
package dtype

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the one-letter element kind, following the numpy typestr
// convention the source container format uses.
type Kind byte

const (
	KindInt     Kind = 'i'
	KindUint    Kind = 'u'
	KindFloat   Kind = 'f'
	KindBool    Kind = 'b'
	KindBytes   Kind = 'S' // fixed-length ASCII/byte string
	KindUnicode Kind = 'U' // fixed-length unicode string
)

// ByteOrder is the byte-order prefix of a simple descriptor.
type ByteOrder byte

const (
	OrderNone   ByteOrder = '|' // not applicable (bool, byte strings)
	OrderLittle ByteOrder = '<'
	OrderBig    ByteOrder = '>'
	OrderNative ByteOrder = '='
)

// Simple is a canonicalized simple dtype descriptor: an element kind,
// byte size, byte order, and (for string kinds) a declared character
// length. Length == 0 with HasLength == false means "any length of
// this kind", which only ever appears on the schema side (e.g. "S"
// with no digits).
type Simple struct {
	Order     ByteOrder
	Kind      Kind
	Size      int // element size in bytes
	Length    int // declared character length for S/U kinds
	HasLength bool
}

// Field is one member of a compound (record) dtype.
type Field struct {
	Name   string
	Format Simple
	Offset int
}

// Descriptor is either a Simple or a Compound dtype. Exactly one of
// the two is populated; IsCompound tells which.
type Descriptor struct {
	Simple   Simple
	Compound Compound
	IsCompound bool
}

// Compound is an ordered list of named, offset fields plus a total
// item size, i.e. a C-style struct / numpy record dtype.
type Compound struct {
	Fields   []Field
	ItemSize int
}

// String renders a Simple back to its canonical code, e.g. "<f8", "S12".
func (s Simple) String() string {
	switch s.Kind {
	case KindBytes:
		if !s.HasLength {
			return "S"
		}
		return fmt.Sprintf("S%d", s.Length)
	case KindUnicode:
		if !s.HasLength {
			return "U"
		}
		return fmt.Sprintf("U%d", s.Length)
	case KindBool:
		return "|b1"
	default:
		return fmt.Sprintf("%c%c%d", s.Order, s.Kind, s.Size)
	}
}

var aliases = map[string]string{
	"int8": "<i1", "int16": "<i2", "int32": "<i4", "int64": "<i8",
	"uint8": "<u1", "uint16": "<u2", "uint32": "<u4", "uint64": "<u8",
	"float32": "<f4", "float64": "<f8",
	"bool": "|b1",
}

// ParseSimple canonicalizes a simple dtype code string. Accepted forms:
// byte-order-prefixed codes ("<f8", ">i4", "|b1"), fixed string codes
// ("S12", "U8", or bare "S"/"U" meaning "any length"), and canonical
// aliases ("int32", "float64", "bool", ...).
func ParseSimple(code string) (Simple, error) {
	if alias, ok := aliases[code]; ok {
		code = alias
	}
	if code == "" {
		return Simple{}, fmt.Errorf("dtype: empty descriptor")
	}

	if code[0] == 'S' || code[0] == 'U' {
		kind := Kind(code[0])
		rest := code[1:]
		if rest == "" {
			return Simple{Order: OrderNone, Kind: kind}, nil
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			return Simple{}, fmt.Errorf("dtype: invalid length in %q", code)
		}
		size := n
		if kind == KindUnicode {
			size = n * 4
		}
		return Simple{Order: OrderNone, Kind: kind, Size: size, Length: n, HasLength: true}, nil
	}

	order := ByteOrder(code[0])
	rest := code
	switch order {
	case OrderLittle, OrderBig, OrderNative, OrderNone:
		rest = code[1:]
	default:
		order = OrderLittle
	}
	if rest == "" {
		return Simple{}, fmt.Errorf("dtype: invalid descriptor %q", code)
	}
	kind := Kind(rest[0])
	sizeStr := rest[1:]
	if kind == KindBool {
		return Simple{Order: OrderNone, Kind: KindBool, Size: 1}, nil
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size <= 0 {
		return Simple{}, fmt.Errorf("dtype: invalid size in %q", code)
	}
	switch kind {
	case KindInt, KindUint, KindFloat:
	default:
		return Simple{}, fmt.Errorf("dtype: unknown kind %q in %q", string(kind), code)
	}
	return Simple{Order: order, Kind: kind, Size: size}, nil
}

// EqualSimple reports whether two canonicalized simple descriptors are
// equal for matching purposes. String kinds match on kind alone when
// want (the schema side) omits a declared length; an actual descriptor
// without a length does not match a want that declares one.
func EqualSimple(actual, want Simple) bool {
	if actual.Kind != want.Kind {
		return false
	}
	switch want.Kind {
	case KindBytes, KindUnicode:
		if !want.HasLength {
			return true
		}
		return actual.Length == want.Length
	case KindBool:
		return true
	default:
		return actual.Order == want.Order && actual.Size == want.Size
	}
}

// EqualCompound reports whether two compound descriptors describe the
// same record layout: same field count, each field agreeing on name,
// format, and offset, in order, and matching total item size.
func EqualCompound(actual, want Compound) bool {
	if actual.ItemSize != want.ItemSize || len(actual.Fields) != len(want.Fields) {
		return false
	}
	for i := range want.Fields {
		a, w := actual.Fields[i], want.Fields[i]
		if a.Name != w.Name || a.Offset != w.Offset || !EqualSimple(a.Format, w.Format) {
			return false
		}
	}
	return true
}

// Equal compares two descriptors of any shape; compound vs simple is
// always a mismatch.
func Equal(actual, want Descriptor) bool {
	if actual.IsCompound != want.IsCompound {
		return false
	}
	if want.IsCompound {
		return EqualCompound(actual.Compound, want.Compound)
	}
	return EqualSimple(actual.Simple, want.Simple)
}

// ValidateCompound checks a compound layout's structural invariant:
// field offsets strictly increasing and each field fits within
// itemsize.
func ValidateCompound(c Compound) error {
	prevEnd := -1
	for _, f := range c.Fields {
		if f.Offset < 0 {
			return fmt.Errorf("dtype: field %q has negative offset", f.Name)
		}
		if f.Offset < prevEnd {
			return fmt.Errorf("dtype: field %q offset %d overlaps preceding field", f.Name, f.Offset)
		}
		end := f.Offset + f.Format.Size
		if end > c.ItemSize {
			return fmt.Errorf("dtype: field %q (offset %d, size %d) exceeds itemsize %d", f.Name, f.Offset, f.Format.Size, c.ItemSize)
		}
		prevEnd = end
	}
	return nil
}

// Key returns a hashable, comparable representation of a Simple for
// use as a cache key (strings.Builder avoids fmt overhead on the hot
// path of canonicalizing the same few descriptors repeatedly).
func (s Simple) Key() string {
	var b strings.Builder
	b.WriteByte(byte(s.Order))
	b.WriteByte(byte(s.Kind))
	b.WriteString(strconv.Itoa(s.Size))
	if s.HasLength {
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(s.Length))
	}
	return b.String()
}
