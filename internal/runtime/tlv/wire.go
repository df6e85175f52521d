// Package tlv implements the compact tag-length-value wire format trait
// values travel in. Every field is emitted as a uvarint key holding
// `tag<<3 | wiretype`, followed by a self-delimiting payload, so a decoder
// makes exactly one forward pass and can skip fields it does not know.
//
// Wire types:
//
//	0 varint   unsigned varint: bool, uint
//	1 svarint  zigzag varint: int, enum, unfixed fixed-point numbers
//	2 fixed    one size byte (1, 2, 4, or 8) + big-endian two's-complement
//	           scaled integer; used when the property declares a width
//	3 bytes    uvarint byte length + raw bytes: strings and byte payloads
//	4 struct   uvarint byte length + nested fields
//	5 map      uvarint byte length + uvarint entry count + entries, each
//	           entry a key field under tag 1 and a value field under tag 2
//	6 null     empty payload; the explicit-null marker for nullable fields
//
// Numbers are carried as fixed-point integers: the wire holds
// round-half-to-even(value/precision), decode returns scaled*precision, so
// one round trip reproduces the value to within the declared precision.
// Absence of a tag and the null wire type are distinct states by
// construction.
package tlv

import "fmt"

const (
	wireVarint  = 0
	wireSVarint = 1
	wireFixed   = 2
	wireBytes   = 3
	wireStruct  = 4
	wireMap     = 5
	wireNull    = 6
)

func wireTypeName(wt uint64) string {
	switch wt {
	case wireVarint:
		return "varint"
	case wireSVarint:
		return "svarint"
	case wireFixed:
		return "fixed"
	case wireBytes:
		return "bytes"
	case wireStruct:
		return "struct"
	case wireMap:
		return "map"
	case wireNull:
		return "null"
	default:
		return fmt.Sprintf("wire(%d)", wt)
	}
}

// ErrorKind classifies decode failures.
type ErrorKind uint8

const (
	UnknownTag ErrorKind = iota + 1
	MissingField
	MalformedLength
	TypeMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownTag:
		return "unknown tag"
	case MissingField:
		return "missing field"
	case MalformedLength:
		return "malformed length"
	case TypeMismatch:
		return "type mismatch"
	default:
		return fmt.Sprintf("protocol error(%d)", uint8(k))
	}
}

// ProtocolError reports a decode failure. A protocol error always fails the
// entire decode of the message; sibling fields are never silently dropped.
type ProtocolError struct {
	Kind   ErrorKind
	Tag    uint32
	Path   string
	Detail string
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("protocol error: %s", e.Kind)
	if e.Path != "" {
		msg += fmt.Sprintf(" at %s", e.Path)
	}
	if e.Tag != 0 {
		msg += fmt.Sprintf(" (tag %d)", e.Tag)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func protocolErr(kind ErrorKind, tag uint32, path, format string, args ...any) error {
	return &ProtocolError{Kind: kind, Tag: tag, Path: path, Detail: fmt.Sprintf(format, args...)}
}
