package tlv

import (
	"encoding/binary"
	"math"

	"github.com/MShaffar19/traitflow/internal/runtime/schema"
	"github.com/MShaffar19/traitflow/internal/runtime/validate"
)

// DecodeMessage deserialises a message in a single forward pass. Unknown
// tags are skipped when the definition is extendable and rejected otherwise;
// required fields still missing after the pass fail the decode. Any protocol
// error fails the whole message, never just the offending field.
func DecodeMessage(def *schema.MessageDef, data []byte) (schema.Value, error) {
	d := &decoder{data: data}
	v, err := d.message(def, def.Name, len(data))
	if err != nil {
		return schema.Value{}, err
	}
	if d.pos != len(data) {
		return schema.Value{}, protocolErr(MalformedLength, 0, def.Name,
			"%d trailing bytes after message", len(data)-d.pos)
	}
	return v, nil
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) message(def *schema.MessageDef, path string, end int) (schema.Value, error) {
	fields := make(map[uint32]schema.Value)

	for d.pos < end {
		tag, wt, err := d.key(path, end)
		if err != nil {
			return schema.Value{}, err
		}

		p, ok := def.Property(tag)
		if !ok {
			if !def.Extendable {
				return schema.Value{}, protocolErr(UnknownTag, tag, path,
					"tag is not declared and the message is not extendable")
			}
			if err := d.skip(wt, path, end); err != nil {
				return schema.Value{}, err
			}
			continue
		}

		fpath := path + "." + p.Name
		val, err := d.field(p, wt, fpath, end)
		if err != nil {
			return schema.Value{}, err
		}
		fields[p.Tag] = val
	}

	for _, p := range def.Properties {
		if _, present := fields[p.Tag]; !present && !p.Optional {
			return schema.Value{}, protocolErr(MissingField, p.Tag, path+"."+p.Name,
				"required field is absent")
		}
	}

	return schema.Struct(fields), nil
}

func (d *decoder) field(p *schema.PropertyDef, wt uint64, path string, end int) (schema.Value, error) {
	if wt == wireNull {
		if !p.Nullable {
			return schema.Value{}, protocolErr(TypeMismatch, p.Tag, path, "null is not permitted")
		}
		return schema.Null(), nil
	}

	switch p.Type {
	case schema.TypeBool:
		if wt != wireVarint {
			return schema.Value{}, d.wireMismatch(p, wt, wireVarint, path)
		}
		u, err := d.uvarint(path, end)
		if err != nil {
			return schema.Value{}, err
		}
		if u > 1 {
			return schema.Value{}, protocolErr(TypeMismatch, p.Tag, path, "boolean payload %d", u)
		}
		return schema.Bool(u == 1), nil

	case schema.TypeUint:
		if size := fixedSize(p.Number); size > 0 {
			u, err := d.fixedPayload(p, wt, size, path, end)
			if err != nil {
				return schema.Value{}, err
			}
			return schema.Uint(u), nil
		}
		if wt != wireVarint {
			return schema.Value{}, d.wireMismatch(p, wt, wireVarint, path)
		}
		u, err := d.uvarint(path, end)
		if err != nil {
			return schema.Value{}, err
		}
		return schema.Uint(u), nil

	case schema.TypeInt:
		if size := fixedSize(p.Number); size > 0 {
			u, err := d.fixedPayload(p, wt, size, path, end)
			if err != nil {
				return schema.Value{}, err
			}
			return schema.Int(signExtend(u, size)), nil
		}
		if wt != wireSVarint {
			return schema.Value{}, d.wireMismatch(p, wt, wireSVarint, path)
		}
		i, err := d.varint(path, end)
		if err != nil {
			return schema.Value{}, err
		}
		return schema.Int(i), nil

	case schema.TypeNumber:
		scaled, err := d.scaledPayload(p, wt, path, end)
		if err != nil {
			return schema.Value{}, err
		}
		return schema.Number(validate.Unscale(p.Number, scaled)), nil

	case schema.TypeEnum:
		if wt != wireSVarint {
			return schema.Value{}, d.wireMismatch(p, wt, wireSVarint, path)
		}
		raw, err := d.varint(path, end)
		if err != nil {
			return schema.Value{}, err
		}
		if name, declared := p.Enum.Lookup(raw); declared {
			return schema.Enum(name, raw), nil
		}
		if p.Enum.Extendable {
			return schema.UnknownEnum(raw), nil
		}
		return schema.Value{}, protocolErr(TypeMismatch, p.Tag, path,
			"value %d is not declared by enum %s", raw, p.Enum.Name)

	case schema.TypeString:
		if wt != wireBytes {
			return schema.Value{}, d.wireMismatch(p, wt, wireBytes, path)
		}
		b, err := d.lengthDelimited(path, end)
		if err != nil {
			return schema.Value{}, err
		}
		return schema.String(string(b)), nil

	case schema.TypeBytes:
		if wt != wireBytes {
			return schema.Value{}, d.wireMismatch(p, wt, wireBytes, path)
		}
		b, err := d.lengthDelimited(path, end)
		if err != nil {
			return schema.Value{}, err
		}
		// Copy so the value does not alias the transport buffer.
		return schema.Bytes(append([]byte(nil), b...)), nil

	case schema.TypeStruct:
		if wt != wireStruct {
			return schema.Value{}, d.wireMismatch(p, wt, wireStruct, path)
		}
		subEnd, err := d.lengthBound(path, end)
		if err != nil {
			return schema.Value{}, err
		}
		return d.message(p.Message, path, subEnd)

	case schema.TypeMap:
		if wt != wireMap {
			return schema.Value{}, d.wireMismatch(p, wt, wireMap, path)
		}
		return d.mapEntries(p, path, end)

	default:
		return schema.Value{}, protocolErr(TypeMismatch, p.Tag, path, "unsupported type %s", p.Type)
	}
}

func (d *decoder) mapEntries(p *schema.PropertyDef, path string, end int) (schema.Value, error) {
	subEnd, err := d.lengthBound(path, end)
	if err != nil {
		return schema.Value{}, err
	}
	count, err := d.uvarint(path, subEnd)
	if err != nil {
		return schema.Value{}, err
	}
	if count > uint64(subEnd-d.pos) {
		return schema.Value{}, protocolErr(MalformedLength, p.Tag, path,
			"entry count %d exceeds remaining payload", count)
	}

	entries := make([]schema.MapEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		key, err := d.entryField(p.Key, path+".key", subEnd)
		if err != nil {
			return schema.Value{}, err
		}
		val, err := d.entryField(p.Elem, path+".value", subEnd)
		if err != nil {
			return schema.Value{}, err
		}
		entries = append(entries, schema.MapEntry{Key: key, Val: val})
	}
	if d.pos != subEnd {
		return schema.Value{}, protocolErr(MalformedLength, p.Tag, path,
			"%d bytes left over after %d entries", subEnd-d.pos, count)
	}
	return schema.Map(entries), nil
}

// entryField reads one pseudo-tagged field of a map entry. The tag must be
// the one the definition pins for that position.
func (d *decoder) entryField(p *schema.PropertyDef, path string, end int) (schema.Value, error) {
	tag, wt, err := d.key(path, end)
	if err != nil {
		return schema.Value{}, err
	}
	if tag != p.Tag {
		return schema.Value{}, protocolErr(MalformedLength, tag, path,
			"expected entry tag %d", p.Tag)
	}
	return d.field(p, wt, path, end)
}

func (d *decoder) scaledPayload(p *schema.PropertyDef, wt uint64, path string, end int) (int64, error) {
	nc := p.Number
	if size := fixedSize(nc); size > 0 {
		u, err := d.fixedPayload(p, wt, size, path, end)
		if err != nil {
			return 0, err
		}
		if nc.Signed {
			return signExtend(u, size), nil
		}
		if u > math.MaxInt64 {
			return 0, protocolErr(TypeMismatch, p.Tag, path,
				"unsigned payload %d exceeds the representable range", u)
		}
		return int64(u), nil
	}
	if wt != wireSVarint {
		return 0, d.wireMismatch(p, wt, wireSVarint, path)
	}
	return d.varint(path, end)
}

func (d *decoder) fixedPayload(p *schema.PropertyDef, wt uint64, size int, path string, end int) (uint64, error) {
	if wt != wireFixed {
		return 0, d.wireMismatch(p, wt, wireFixed, path)
	}
	got, u, err := d.fixed(path, end)
	if err != nil {
		return 0, err
	}
	if got != size {
		return 0, protocolErr(TypeMismatch, p.Tag, path,
			"fixed payload is %d bytes, declared width needs %d", got, size)
	}
	return u, nil
}

func (d *decoder) skip(wt uint64, path string, end int) error {
	switch wt {
	case wireVarint, wireSVarint:
		_, err := d.uvarint(path, end)
		return err
	case wireFixed:
		_, _, err := d.fixed(path, end)
		return err
	case wireBytes, wireStruct, wireMap:
		subEnd, err := d.lengthBound(path, end)
		if err != nil {
			return err
		}
		d.pos = subEnd
		return nil
	case wireNull:
		return nil
	default:
		return protocolErr(MalformedLength, 0, path, "cannot skip wire type %s", wireTypeName(wt))
	}
}

func (d *decoder) key(path string, end int) (uint32, uint64, error) {
	raw, err := d.uvarint(path, end)
	if err != nil {
		return 0, 0, err
	}
	tag := raw >> 3
	if tag > math.MaxUint32 {
		return 0, 0, protocolErr(MalformedLength, 0, path, "tag %d overflows 32 bits", tag)
	}
	return uint32(tag), raw & 7, nil
}

func (d *decoder) uvarint(path string, end int) (uint64, error) {
	u, n := binary.Uvarint(d.data[d.pos:end])
	if n <= 0 {
		return 0, protocolErr(MalformedLength, 0, path, "truncated varint")
	}
	d.pos += n
	return u, nil
}

func (d *decoder) varint(path string, end int) (int64, error) {
	i, n := binary.Varint(d.data[d.pos:end])
	if n <= 0 {
		return 0, protocolErr(MalformedLength, 0, path, "truncated varint")
	}
	d.pos += n
	return i, nil
}

// lengthBound reads a uvarint byte length and returns the absolute offset
// the payload ends at, verified against the enclosing bound.
func (d *decoder) lengthBound(path string, end int) (int, error) {
	n, err := d.uvarint(path, end)
	if err != nil {
		return 0, err
	}
	if n > uint64(end-d.pos) {
		return 0, protocolErr(MalformedLength, 0, path,
			"declared length %d exceeds the %d bytes remaining", n, end-d.pos)
	}
	return d.pos + int(n), nil
}

func (d *decoder) lengthDelimited(path string, end int) ([]byte, error) {
	subEnd, err := d.lengthBound(path, end)
	if err != nil {
		return nil, err
	}
	b := d.data[d.pos:subEnd]
	d.pos = subEnd
	return b, nil
}

func (d *decoder) fixed(path string, end int) (int, uint64, error) {
	if d.pos >= end {
		return 0, 0, protocolErr(MalformedLength, 0, path, "truncated fixed payload")
	}
	size := int(d.data[d.pos])
	switch size {
	case 1, 2, 4, 8:
	default:
		return 0, 0, protocolErr(MalformedLength, 0, path, "fixed size byte %d", size)
	}
	d.pos++
	if end-d.pos < size {
		return 0, 0, protocolErr(MalformedLength, 0, path, "truncated fixed payload")
	}
	var u uint64
	for i := 0; i < size; i++ {
		u = u<<8 | uint64(d.data[d.pos+i])
	}
	d.pos += size
	return size, u, nil
}

func (d *decoder) wireMismatch(p *schema.PropertyDef, got, want uint64, path string) error {
	return protocolErr(TypeMismatch, p.Tag, path,
		"wire type %s where %s was expected", wireTypeName(got), wireTypeName(want))
}

func signExtend(u uint64, size int) int64 {
	shift := uint(64 - size*8)
	return int64(u<<shift) >> shift
}
