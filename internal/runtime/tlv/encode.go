package tlv

import (
	"encoding/binary"
	"fmt"

	"github.com/MShaffar19/traitflow/internal/runtime/schema"
	"github.com/MShaffar19/traitflow/internal/runtime/validate"
)

// EncodeMessage serialises a struct value against its message definition.
// The value is validated against every declared constraint first, so nothing
// half-encoded ever reaches the wire. Fields are emitted in declaration
// order, making the encoding deterministic for equal inputs. Tags present in
// the value but not in the definition are not emitted; without a property
// definition there is no wire representation for them.
func EncodeMessage(def *schema.MessageDef, v schema.Value) ([]byte, error) {
	if err := validate.Message(def, v); err != nil {
		return nil, err
	}
	return appendFields(nil, def, v)
}

func appendFields(buf []byte, def *schema.MessageDef, v schema.Value) ([]byte, error) {
	var err error
	for _, p := range def.Properties {
		field, present := v.Field(p.Tag)
		if !present {
			continue
		}
		buf, err = appendField(buf, p, field)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendField(buf []byte, p *schema.PropertyDef, v schema.Value) ([]byte, error) {
	if v.IsNull() {
		return appendKey(buf, p.Tag, wireNull), nil
	}

	switch p.Type {
	case schema.TypeBool:
		b, _ := v.Bool()
		buf = appendKey(buf, p.Tag, wireVarint)
		var bit uint64
		if b {
			bit = 1
		}
		return binary.AppendUvarint(buf, bit), nil

	case schema.TypeUint:
		u, _ := v.Uint()
		if size := fixedSize(p.Number); size > 0 {
			buf = appendKey(buf, p.Tag, wireFixed)
			return appendFixed(buf, size, u), nil
		}
		buf = appendKey(buf, p.Tag, wireVarint)
		return binary.AppendUvarint(buf, u), nil

	case schema.TypeInt:
		i, _ := v.Int()
		if size := fixedSize(p.Number); size > 0 {
			buf = appendKey(buf, p.Tag, wireFixed)
			return appendFixed(buf, size, uint64(i)), nil
		}
		buf = appendKey(buf, p.Tag, wireSVarint)
		return binary.AppendVarint(buf, i), nil

	case schema.TypeNumber:
		n, _ := v.Number()
		scaled, err := validate.Scale(p.Number, p.Name, validate.Quantize(n, p.Number.Precision))
		if err != nil {
			return nil, err
		}
		if size := fixedSize(p.Number); size > 0 {
			buf = appendKey(buf, p.Tag, wireFixed)
			return appendFixed(buf, size, uint64(scaled)), nil
		}
		buf = appendKey(buf, p.Tag, wireSVarint)
		return binary.AppendVarint(buf, scaled), nil

	case schema.TypeEnum:
		_, value, _, _ := v.Enum()
		buf = appendKey(buf, p.Tag, wireSVarint)
		return binary.AppendVarint(buf, value), nil

	case schema.TypeString:
		s, _ := v.Str()
		buf = appendKey(buf, p.Tag, wireBytes)
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		return append(buf, s...), nil

	case schema.TypeBytes:
		b, _ := v.Bytes()
		buf = appendKey(buf, p.Tag, wireBytes)
		buf = binary.AppendUvarint(buf, uint64(len(b)))
		return append(buf, b...), nil

	case schema.TypeStruct:
		body, err := appendFields(nil, p.Message, v)
		if err != nil {
			return nil, err
		}
		buf = appendKey(buf, p.Tag, wireStruct)
		buf = binary.AppendUvarint(buf, uint64(len(body)))
		return append(buf, body...), nil

	case schema.TypeMap:
		entries := v.Entries()
		body := binary.AppendUvarint(nil, uint64(len(entries)))
		var err error
		for _, entry := range entries {
			body, err = appendField(body, p.Key, entry.Key)
			if err != nil {
				return nil, err
			}
			body, err = appendField(body, p.Elem, entry.Val)
			if err != nil {
				return nil, err
			}
		}
		buf = appendKey(buf, p.Tag, wireMap)
		buf = binary.AppendUvarint(buf, uint64(len(body)))
		return append(buf, body...), nil

	default:
		return nil, fmt.Errorf("tlv: property %q has unsupported type %s", p.Name, p.Type)
	}
}

func appendKey(buf []byte, tag uint32, wt uint64) []byte {
	return binary.AppendUvarint(buf, uint64(tag)<<3|wt)
}

// fixedSize returns the fixed encoding size in bytes, or 0 when the property
// uses variable-width varints.
func fixedSize(nc *schema.NumberConstraints) int {
	if nc == nil || nc.Width == 0 {
		return 0
	}
	return int(nc.Width) / 8
}

func appendFixed(buf []byte, size int, u uint64) []byte {
	buf = append(buf, byte(size))
	for i := size - 1; i >= 0; i-- {
		buf = append(buf, byte(u>>(uint(i)*8)))
	}
	return buf
}
