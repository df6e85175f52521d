// Package validate checks candidate values against the constraints their
// property declares: numeric range, fixed-point precision and width, string
// byte length, nullability, optionality, and enum membership. It also owns
// the fixed-point scaling contract the binary codec relies on.
package validate

import (
	"fmt"
	"math"

	"github.com/MShaffar19/traitflow/internal/runtime/schema"
)

// ConstraintViolation reports which property and which constraint a value
// violated, so callers can correct the value instead of guessing.
type ConstraintViolation struct {
	Property   string
	Constraint string
	Reason     string
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation on %q (%s): %s", e.Property, e.Constraint, e.Reason)
}

func violation(property, constraint, format string, args ...any) error {
	return &ConstraintViolation{
		Property:   property,
		Constraint: constraint,
		Reason:     fmt.Sprintf(format, args...),
	}
}

// Quantize rounds x to the nearest multiple of precision, half to even.
// Decode reverses the scaling with the identical arithmetic, so a value
// quantized here round-trips exactly.
func Quantize(x, precision float64) float64 {
	return math.RoundToEven(x/precision) * precision
}

// Scale converts a value to its fixed-point wire integer. The result fits
// the declared width or an error is returned.
func Scale(nc *schema.NumberConstraints, property string, x float64) (int64, error) {
	scaled := math.RoundToEven(x / nc.Precision)

	lo, hi := scaledBounds(nc)
	if scaled < lo || scaled > hi {
		return 0, violation(property, "width",
			"value %g scales to %g, outside the %d-bit %s range", x, scaled, effectiveWidth(nc), signedness(nc))
	}
	return int64(scaled), nil
}

// Unscale converts a fixed-point wire integer back to its value.
func Unscale(nc *schema.NumberConstraints, scaled int64) float64 {
	return float64(scaled) * nc.Precision
}

func effectiveWidth(nc *schema.NumberConstraints) uint8 {
	if nc.Width == 0 {
		return 64
	}
	return nc.Width
}

func signedness(nc *schema.NumberConstraints) string {
	if nc.Signed {
		return "signed"
	}
	return "unsigned"
}

func scaledBounds(nc *schema.NumberConstraints) (float64, float64) {
	bits := float64(effectiveWidth(nc))
	if nc.Signed {
		return -math.Exp2(bits - 1), math.Exp2(bits-1) - 1
	}
	// Unsigned values still travel as int64 internally, so 64-bit unsigned
	// fields are capped at the int64 maximum.
	if nc.Width == 0 || nc.Width == 64 {
		return 0, math.Exp2(63) - 1
	}
	return 0, math.Exp2(bits) - 1
}

// Property validates a single value against its property definition.
// A nil error means the value may be encoded as-is (numbers may still be
// quantized by the codec).
func Property(p *schema.PropertyDef, v schema.Value) error {
	if p == nil {
		return violation("", "schema", "property definition is nil")
	}

	if v.IsNull() {
		if !p.Nullable {
			return violation(p.Name, "nullability", "null is not permitted")
		}
		return nil
	}

	switch p.Type {
	case schema.TypeBool:
		if _, ok := v.Bool(); !ok {
			return typeMismatch(p, v)
		}
		return nil

	case schema.TypeInt:
		i, ok := v.Int()
		if !ok {
			return typeMismatch(p, v)
		}
		return validateNumber(p, float64(i))

	case schema.TypeUint:
		u, ok := v.Uint()
		if !ok {
			return typeMismatch(p, v)
		}
		return validateNumber(p, float64(u))

	case schema.TypeNumber:
		n, ok := v.Number()
		if !ok {
			return typeMismatch(p, v)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return violation(p.Name, "range", "value must be finite")
		}
		return validateNumber(p, n)

	case schema.TypeString:
		s, ok := v.Str()
		if !ok {
			return typeMismatch(p, v)
		}
		if p.String != nil && len(s) > p.String.MaxLength {
			return violation(p.Name, "max_length",
				"encoded length %d exceeds limit %d bytes", len(s), p.String.MaxLength)
		}
		return nil

	case schema.TypeBytes:
		b, ok := v.Bytes()
		if !ok {
			return typeMismatch(p, v)
		}
		if p.String != nil && len(b) > p.String.MaxLength {
			return violation(p.Name, "max_length",
				"payload length %d exceeds limit %d bytes", len(b), p.String.MaxLength)
		}
		return nil

	case schema.TypeEnum:
		_, value, _, ok := v.Enum()
		if !ok {
			return typeMismatch(p, v)
		}
		if _, declared := p.Enum.Lookup(value); declared {
			return nil
		}
		if p.Enum.Extendable {
			// Unknown values of extendable enums are accepted and stay
			// tagged unknown rather than being coerced or rejected.
			return nil
		}
		return violation(p.Name, "enum", "value %d is not declared by %s", value, p.Enum.Name)

	case schema.TypeStruct:
		if v.Kind() != schema.KindStruct {
			return typeMismatch(p, v)
		}
		return Message(p.Message, v)

	case schema.TypeMap:
		entries := v.Entries()
		if v.Kind() != schema.KindMap {
			return typeMismatch(p, v)
		}
		for _, entry := range entries {
			if err := Property(p.Key, entry.Key); err != nil {
				return err
			}
			if err := Property(p.Elem, entry.Val); err != nil {
				return err
			}
		}
		return nil

	default:
		return violation(p.Name, "schema", "unsupported type %s", p.Type)
	}
}

// Message validates a struct value against a message definition: every
// present field against its property, required fields for presence, and
// unknown tags against the message's extendable flag.
func Message(def *schema.MessageDef, v schema.Value) error {
	if def == nil {
		return violation("", "schema", "message definition is nil")
	}
	if v.Kind() != schema.KindStruct {
		return violation(def.Name, "type", "expected struct, got %s", v.Kind())
	}

	for tag, field := range v.Fields() {
		p, ok := def.Property(tag)
		if !ok {
			if def.Extendable {
				continue
			}
			return violation(def.Name, "tag", "tag %d is not declared and the message is not extendable", tag)
		}
		if err := Property(p, field); err != nil {
			return err
		}
	}

	for _, p := range def.Properties {
		if _, present := v.Field(p.Tag); !present && !p.Optional {
			return violation(p.Name, "optionality", "required field is absent")
		}
	}

	return nil
}

func validateNumber(p *schema.PropertyDef, x float64) error {
	nc := p.Number
	if nc == nil {
		return nil
	}
	if x < nc.Min || x > nc.Max {
		return violation(p.Name, "range", "value %g outside [%g, %g]", x, nc.Min, nc.Max)
	}
	if _, err := Scale(nc, p.Name, Quantize(x, nc.Precision)); err != nil {
		return err
	}
	return nil
}

func typeMismatch(p *schema.PropertyDef, v schema.Value) error {
	return violation(p.Name, "type", "expected %s, got %s", p.Type, v.Kind())
}
