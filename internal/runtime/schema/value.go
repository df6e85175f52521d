package schema

import "fmt"

// Kind discriminates the runtime representation of a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindInt
	KindUint
	KindNumber
	KindString
	KindBytes
	KindEnum
	KindStruct
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindEnum:
		return "enum"
	case KindStruct:
		return "struct"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is the typed runtime representation of a property, command, or event
// field. Explicit null is a Value of KindNull; absence is the field missing
// from its enclosing struct entirely. Enum values are tagged Known or
// Unknown so application code can detect data from newer schema versions
// instead of silently coercing it.
type Value struct {
	kind Kind

	boolVal  bool
	intVal   int64 // also the raw enum value
	uintVal  uint64
	numVal   float64
	strVal   string // also the resolved enum name
	bytesVal []byte

	enumKnown bool
	fields    map[uint32]Value
	entries   []MapEntry
}

// MapEntry is one key/value pair of a map-typed property.
type MapEntry struct {
	Key Value
	Val Value
}

// Null returns the explicit-null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, boolVal: b} }

// Int wraps a signed integer.
func Int(i int64) Value { return Value{kind: KindInt, intVal: i} }

// Uint wraps an unsigned integer.
func Uint(u uint64) Value { return Value{kind: KindUint, uintVal: u} }

// Number wraps a real-valued quantity. It is quantized to the property's
// declared precision at validation/encode time.
func Number(f float64) Value { return Value{kind: KindNumber, numVal: f} }

// String wraps a UTF-8 string.
func String(s string) Value { return Value{kind: KindString, strVal: s} }

// Bytes wraps a raw byte payload. The slice is not copied.
func Bytes(b []byte) Value { return Value{kind: KindBytes, bytesVal: b} }

// Enum wraps a value declared by the enumeration.
func Enum(name string, value int64) Value {
	return Value{kind: KindEnum, strVal: name, intVal: value, enumKnown: true}
}

// UnknownEnum wraps a raw enum value not declared by the schema this process
// was built against. Only extendable enums produce these.
func UnknownEnum(value int64) Value {
	return Value{kind: KindEnum, intVal: value}
}

// Struct wraps a tag-to-value field set. The map is not copied.
func Struct(fields map[uint32]Value) Value {
	if fields == nil {
		fields = map[uint32]Value{}
	}
	return Value{kind: KindStruct, fields: fields}
}

// Map wraps an ordered set of key/value entries. The slice is not copied.
func Map(entries []MapEntry) Value {
	return Value{kind: KindMap, entries: entries}
}

// Kind returns the value's discriminator.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is the explicit null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) { return v.boolVal, v.kind == KindBool }

// Int returns the signed integer payload.
func (v Value) Int() (int64, bool) { return v.intVal, v.kind == KindInt }

// Uint returns the unsigned integer payload.
func (v Value) Uint() (uint64, bool) { return v.uintVal, v.kind == KindUint }

// Number returns the real-valued payload.
func (v Value) Number() (float64, bool) { return v.numVal, v.kind == KindNumber }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.strVal, v.kind == KindString }

// Bytes returns the raw byte payload.
func (v Value) Bytes() ([]byte, bool) { return v.bytesVal, v.kind == KindBytes }

// Enum returns the enum payload: the resolved name (empty when unknown),
// the raw integer value, and whether the value was declared by the schema.
func (v Value) Enum() (name string, value int64, known bool, ok bool) {
	return v.strVal, v.intVal, v.enumKnown, v.kind == KindEnum
}

// Field returns the struct field stored under tag.
func (v Value) Field(tag uint32) (Value, bool) {
	if v.kind != KindStruct {
		return Value{}, false
	}
	f, ok := v.fields[tag]
	return f, ok
}

// Fields returns the struct's field map. Callers must treat it as read-only.
func (v Value) Fields() map[uint32]Value {
	if v.kind != KindStruct {
		return nil
	}
	return v.fields
}

// Entries returns the map's key/value pairs in encode order.
func (v Value) Entries() []MapEntry {
	if v.kind != KindMap {
		return nil
	}
	return v.entries
}

// Equal reports deep equality of two values. Numbers compare exactly; the
// codec quantizes them before they are stored, so exact comparison is the
// round-trip contract.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.boolVal == other.boolVal
	case KindInt:
		return v.intVal == other.intVal
	case KindUint:
		return v.uintVal == other.uintVal
	case KindNumber:
		return v.numVal == other.numVal
	case KindString:
		return v.strVal == other.strVal
	case KindBytes:
		if len(v.bytesVal) != len(other.bytesVal) {
			return false
		}
		for i := range v.bytesVal {
			if v.bytesVal[i] != other.bytesVal[i] {
				return false
			}
		}
		return true
	case KindEnum:
		return v.intVal == other.intVal && v.enumKnown == other.enumKnown
	case KindStruct:
		if len(v.fields) != len(other.fields) {
			return false
		}
		for tag, f := range v.fields {
			o, ok := other.fields[tag]
			if !ok || !f.Equal(o) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.entries) != len(other.entries) {
			return false
		}
		for i := range v.entries {
			if !v.entries[i].Key.Equal(other.entries[i].Key) ||
				!v.entries[i].Val.Equal(other.entries[i].Val) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.boolVal)
	case KindInt:
		return fmt.Sprintf("%d", v.intVal)
	case KindUint:
		return fmt.Sprintf("%d", v.uintVal)
	case KindNumber:
		return fmt.Sprintf("%g", v.numVal)
	case KindString:
		return fmt.Sprintf("%q", v.strVal)
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.bytesVal))
	case KindEnum:
		if v.enumKnown {
			return fmt.Sprintf("%s(%d)", v.strVal, v.intVal)
		}
		return fmt.Sprintf("unknown(%d)", v.intVal)
	case KindStruct:
		return fmt.Sprintf("struct(%d fields)", len(v.fields))
	case KindMap:
		return fmt.Sprintf("map(%d entries)", len(v.entries))
	default:
		return "invalid"
	}
}
