// Package schema holds the in-memory model of a trait definition: property
// sets, enumerations, nested messages, commands, and events, together with
// their wire-tag and constraint metadata. A TraitSchema is built once by
// Load (or Parse, for JSON documents) and never mutated afterwards, so it
// can be shared across goroutines without synchronisation.
package schema

import "fmt"

// Type identifies the declared value type of a property.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt
	TypeUint
	TypeNumber
	TypeString
	TypeBytes
	TypeEnum
	TypeStruct
	TypeMap
)

var typeNames = map[Type]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeInt:     "int",
	TypeUint:    "uint",
	TypeNumber:  "number",
	TypeString:  "string",
	TypeBytes:   "bytes",
	TypeEnum:    "enum",
	TypeStruct:  "struct",
	TypeMap:     "map",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseType resolves the textual type name used in schema documents.
func ParseType(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name && t != TypeInvalid {
			return t, true
		}
	}
	return TypeInvalid, false
}

// Variability declares whether a property value can change at runtime.
type Variability uint8

const (
	Dynamic Variability = iota
	Static
)

func (v Variability) String() string {
	if v == Static {
		return "static"
	}
	return "dynamic"
}

// NumberConstraints bound a numeric property. Precision and Width jointly
// determine the fixed-point encoding: the wire carries round(value/Precision)
// in Width bits, so one encode/decode round trip reproduces the value to
// within Precision.
type NumberConstraints struct {
	Min       float64
	Max       float64
	Precision float64
	Width     uint8 // 0 (variable-width) or 8, 16, 32, 64
	Signed    bool
}

// StringConstraints bound a string or bytes property. MaxLength is measured
// in encoded bytes, not code points.
type StringConstraints struct {
	MaxLength int
}

// EnumItem is one named value of an enumeration.
type EnumItem struct {
	Name  string
	Value int64
}

// EnumDef is an ordered set of named integer values. Extendable enums
// tolerate unknown values on decode; closed enums reject them.
type EnumDef struct {
	Name       string
	Extendable bool
	Items      []EnumItem

	byValue map[int64]string
}

// Lookup returns the declared name for an enum value.
func (e *EnumDef) Lookup(value int64) (string, bool) {
	name, ok := e.byValue[value]
	return name, ok
}

// PropertyDef describes one field of a message: its stable wire tag, type,
// mutability, and constraints. A tag, once assigned, is never reassigned to
// a different semantic field across schema versions.
type PropertyDef struct {
	Tag         uint32
	Name        string
	Type        Type
	Writable    bool
	Variability Variability
	Optional    bool
	Nullable    bool

	Number *NumberConstraints // TypeInt, TypeUint, TypeNumber
	String *StringConstraints // TypeString, TypeBytes
	Enum   *EnumDef           // TypeEnum, resolved at load time

	Message *MessageDef  // TypeStruct
	Key     *PropertyDef // TypeMap
	Elem    *PropertyDef // TypeMap
}

// MessageDef is a property bag: the trait's own property set, a command
// request or response, or an event payload. Every declared tag lies within
// [ReservedTagMin, ReservedTagMax]; Extendable controls whether decoders
// tolerate tags outside the declared set.
type MessageDef struct {
	Name           string
	ReservedTagMin uint32
	ReservedTagMax uint32
	Extendable     bool
	Properties     []*PropertyDef

	byTag map[uint32]*PropertyDef
}

// Property returns the definition for a wire tag.
func (m *MessageDef) Property(tag uint32) (*PropertyDef, bool) {
	p, ok := m.byTag[tag]
	return p, ok
}

// CommandDef pairs a request message with the response carried by its
// completion event.
type CommandDef struct {
	ID       uint32
	Name     string
	Request  *MessageDef
	Response *MessageDef
}

// EventDef declares an event emitted by a trait.
type EventDef struct {
	ID      uint32
	Name    string
	Payload *MessageDef
}

// Key identifies a trait type within the fabric.
type Key struct {
	VendorID uint16
	TraitID  uint32
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.VendorID, k.TraitID)
}

// TraitSchema is the immutable, versioned definition of one trait.
type TraitSchema struct {
	VendorID uint16
	TraitID  uint32
	Version  uint32
	Name     string

	Properties *MessageDef
	Enums      []*EnumDef
	Commands   []*CommandDef
	Events     []*EventDef

	enumsByName  map[string]*EnumDef
	commandsByID map[uint32]*CommandDef
	eventsByID   map[uint32]*EventDef
}

// Key returns the (vendor, trait) identity of the schema.
func (t *TraitSchema) Key() Key {
	return Key{VendorID: t.VendorID, TraitID: t.TraitID}
}

// Command returns the command declared with the given id.
func (t *TraitSchema) Command(id uint32) (*CommandDef, bool) {
	c, ok := t.commandsByID[id]
	return c, ok
}

// Event returns the event declared with the given id.
func (t *TraitSchema) Event(id uint32) (*EventDef, bool) {
	e, ok := t.eventsByID[id]
	return e, ok
}

// Enum returns the enumeration declared with the given name.
func (t *TraitSchema) Enum(name string) (*EnumDef, bool) {
	e, ok := t.enumsByName[name]
	return e, ok
}

// ErrorKind classifies schema load failures.
type ErrorKind uint8

const (
	DuplicateTag ErrorKind = iota + 1
	TagOutOfRange
	InvalidRange
	UnknownReference
)

func (k ErrorKind) String() string {
	switch k {
	case DuplicateTag:
		return "duplicate tag"
	case TagOutOfRange:
		return "tag out of reserved range"
	case InvalidRange:
		return "invalid range"
	case UnknownReference:
		return "unknown reference"
	default:
		return fmt.Sprintf("schema error(%d)", uint8(k))
	}
}

// SchemaError reports why a trait definition was rejected at load time. A
// schema that fails to load is never partially usable.
type SchemaError struct {
	Kind   ErrorKind
	Path   string
	Detail string
}

func (e *SchemaError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("schema %s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("schema %s: %s: %s", e.Path, e.Kind, e.Detail)
}
