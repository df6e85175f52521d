// Package version computes compatibility between two versions of the same
// trait schema. A newer version is compatible when every peer built against
// the older version keeps working: existing tags keep their meaning and
// encoding, ranges only widen, enums only gain values, and new fields are
// optional so old encoders remain valid.
package version

import (
	"fmt"

	"github.com/MShaffar19/traitflow/internal/runtime/schema"
)

// Verdict is the outcome of a compatibility check.
type Verdict uint8

const (
	Compatible Verdict = iota
	IncompatibleBreaking
)

func (v Verdict) String() string {
	if v == Compatible {
		return "compatible"
	}
	return "incompatible (breaking)"
}

// Incompatibility names one specific break between two schema versions.
type Incompatibility struct {
	Path   string
	Reason string
}

func (i Incompatibility) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Reason)
}

// Report lists everything that breaks peers built against the older version.
// An empty Breaks slice means the versions are compatible.
type Report struct {
	Verdict Verdict
	Breaks  []Incompatibility
}

// Compatible reports whether the newer schema can replace the older one
// without breaking existing peers.
func (r Report) Compatible() bool { return r.Verdict == Compatible }

// Check compares an older and a newer version of one trait schema and
// reports every break it finds rather than stopping at the first.
func Check(old, newer *schema.TraitSchema) Report {
	c := &checker{}

	if old == nil || newer == nil {
		c.breakAt("schema", "both versions are required")
		return c.report()
	}
	if old.Key() != newer.Key() {
		c.breakAt("identity", "schemas describe different traits: %s vs %s", old.Key(), newer.Key())
		return c.report()
	}
	if newer.Version < old.Version {
		c.breakAt("version", "version went backwards: %d to %d", old.Version, newer.Version)
	}

	c.checkEnums(old, newer)
	c.checkMessage(old.Name, old.Properties, newer.Properties)
	c.checkCommands(old, newer)
	c.checkEvents(old, newer)

	return c.report()
}

type checker struct {
	breaks []Incompatibility
}

func (c *checker) breakAt(path, format string, args ...any) {
	c.breaks = append(c.breaks, Incompatibility{Path: path, Reason: fmt.Sprintf(format, args...)})
}

func (c *checker) report() Report {
	if len(c.breaks) == 0 {
		return Report{Verdict: Compatible}
	}
	return Report{Verdict: IncompatibleBreaking, Breaks: c.breaks}
}

func (c *checker) checkEnums(old, newer *schema.TraitSchema) {
	for _, oe := range old.Enums {
		ne, ok := newer.Enum(oe.Name)
		if !ok {
			c.breakAt(oe.Name, "enumeration was removed")
			continue
		}
		c.checkEnum(oe, ne)
	}
}

// checkEnum allows gaining items only. Losing or renumbering an item breaks
// every peer that encodes it; losing the extendable flag turns values a new
// peer legally emits into decode failures at old peers' partners.
func (c *checker) checkEnum(old, newer *schema.EnumDef) {
	if old.Extendable && !newer.Extendable {
		c.breakAt(old.Name, "enumeration is no longer extendable")
	}
	for _, item := range old.Items {
		name, ok := newer.Lookup(item.Value)
		if !ok {
			c.breakAt(old.Name+"."+item.Name, "enum value %d was removed", item.Value)
			continue
		}
		if name != item.Name {
			c.breakAt(old.Name+"."+item.Name, "enum value %d was renamed to %q", item.Value, name)
		}
	}
}

func (c *checker) checkMessage(path string, old, newer *schema.MessageDef) {
	for _, op := range old.Properties {
		np, ok := newer.Property(op.Tag)
		if !ok {
			c.breakAt(path+"."+op.Name, "tag %d was removed", op.Tag)
			continue
		}
		c.checkProperty(path+"."+op.Name, op, np)
	}

	// Additions must be optional and stay inside the range old decoders
	// already treat as reserved.
	for _, np := range newer.Properties {
		if _, existed := old.Property(np.Tag); existed {
			continue
		}
		ppath := path + "." + np.Name
		if !np.Optional {
			c.breakAt(ppath, "added field must be optional")
		}
		if np.Tag < old.ReservedTagMin || np.Tag > old.ReservedTagMax {
			c.breakAt(ppath, "added tag %d is outside the reserved range [%d, %d]",
				np.Tag, old.ReservedTagMin, old.ReservedTagMax)
		}
	}

	if old.Extendable && !newer.Extendable {
		c.breakAt(path, "message is no longer extendable")
	}
}

func (c *checker) checkProperty(path string, old, newer *schema.PropertyDef) {
	if old.Type != newer.Type {
		c.breakAt(path, "type changed from %s to %s", old.Type, newer.Type)
		return
	}
	if old.Nullable && !newer.Nullable {
		c.breakAt(path, "field is no longer nullable")
	}
	if old.Optional && !newer.Optional {
		c.breakAt(path, "optional field became required")
	}

	switch old.Type {
	case schema.TypeInt, schema.TypeUint, schema.TypeNumber:
		c.checkNumber(path, old.Number, newer.Number)
	case schema.TypeString, schema.TypeBytes:
		c.checkLength(path, old.String, newer.String)
	case schema.TypeEnum:
		c.checkEnum(old.Enum, newer.Enum)
	case schema.TypeStruct:
		c.checkMessage(path, old.Message, newer.Message)
	case schema.TypeMap:
		c.checkProperty(path+".key", old.Key, newer.Key)
		c.checkProperty(path+".value", old.Elem, newer.Elem)
	}
}

// checkNumber pins the fixed-point encoding parameters and lets the range
// widen only. Precision, width, or signedness changes re-interpret bytes old
// peers already emit.
func (c *checker) checkNumber(path string, old, newer *schema.NumberConstraints) {
	if old == nil || newer == nil {
		return
	}
	if newer.Precision != old.Precision {
		c.breakAt(path, "precision changed from %g to %g", old.Precision, newer.Precision)
	}
	if newer.Width != old.Width {
		c.breakAt(path, "width changed from %d to %d", old.Width, newer.Width)
	}
	if newer.Signed != old.Signed {
		c.breakAt(path, "signedness changed")
	}
	if newer.Min > old.Min || newer.Max < old.Max {
		c.breakAt(path, "range narrowed from [%g, %g] to [%g, %g]",
			old.Min, old.Max, newer.Min, newer.Max)
	}
}

func (c *checker) checkLength(path string, old, newer *schema.StringConstraints) {
	if old == nil {
		if newer != nil {
			c.breakAt(path, "an unbounded field gained max_length %d", newer.MaxLength)
		}
		return
	}
	if newer != nil && newer.MaxLength < old.MaxLength {
		c.breakAt(path, "max_length shrank from %d to %d", old.MaxLength, newer.MaxLength)
	}
}

func (c *checker) checkCommands(old, newer *schema.TraitSchema) {
	for _, oc := range old.Commands {
		nc, ok := newer.Command(oc.ID)
		if !ok {
			c.breakAt(old.Name+".commands."+oc.Name, "command %d was removed", oc.ID)
			continue
		}
		path := old.Name + ".commands." + oc.Name
		c.checkMessage(path+".request", oc.Request, nc.Request)
		if oc.Response != nil {
			if nc.Response == nil {
				c.breakAt(path+".response", "response message was removed")
			} else {
				c.checkMessage(path+".response", oc.Response, nc.Response)
			}
		}
	}
}

func (c *checker) checkEvents(old, newer *schema.TraitSchema) {
	for _, oe := range old.Events {
		ne, ok := newer.Event(oe.ID)
		if !ok {
			c.breakAt(old.Name+".events."+oe.Name, "event %d was removed", oe.ID)
			continue
		}
		c.checkMessage(old.Name+".events."+oe.Name+".payload", oe.Payload, ne.Payload)
	}
}
