package runtime

import (
	"sync"

	errspkg "github.com/MShaffar19/traitflow/internal/runtime/errors"
	"github.com/MShaffar19/traitflow/internal/runtime/schema"
	"github.com/MShaffar19/traitflow/internal/runtime/validate"
)

// TraitInstance is the property state of one resource bound to one trait
// schema. Updates validate everything first and then apply atomically:
// readers never observe a half-applied patch, and a failed update leaves the
// state untouched.
type TraitInstance struct {
	schema *schema.TraitSchema

	mu     sync.RWMutex
	fields map[uint32]schema.Value

	// onUpdate runs after a successful Patch or Sync, outside the write
	// lock, with the fields that were applied. Used to publish property
	// update events.
	onUpdate func(changed map[uint32]schema.Value)
}

// NewTraitInstance creates an empty instance for the given schema.
func NewTraitInstance(ts *schema.TraitSchema) (*TraitInstance, error) {
	if ts == nil {
		return nil, errspkg.ErrSchemaRequired
	}
	return &TraitInstance{
		schema: ts,
		fields: make(map[uint32]schema.Value),
	}, nil
}

// Schema returns the trait schema the instance is bound to.
func (i *TraitInstance) Schema() *schema.TraitSchema { return i.schema }

// OnUpdate registers a callback invoked after every successful Patch or
// Sync with the applied fields. Set it before the instance is shared.
func (i *TraitInstance) OnUpdate(fn func(changed map[uint32]schema.Value)) {
	i.onUpdate = fn
}

// Get returns the current value of one property. The bool distinguishes an
// absent property from an explicit null.
func (i *TraitInstance) Get(tag uint32) (schema.Value, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	v, ok := i.fields[tag]
	return v, ok
}

// Snapshot returns the full property state as a struct value.
func (i *TraitInstance) Snapshot() schema.Value {
	i.mu.RLock()
	defer i.mu.RUnlock()

	copied := make(map[uint32]schema.Value, len(i.fields))
	for tag, v := range i.fields {
		copied[tag] = v
	}
	return schema.Struct(copied)
}

// Patch validates and applies a subset of properties. Tags not named keep
// their current values. Any violation rejects the whole patch.
func (i *TraitInstance) Patch(fields map[uint32]schema.Value) error {
	def := i.schema.Properties
	for tag, v := range fields {
		p, ok := def.Property(tag)
		if !ok {
			if def.Extendable {
				continue
			}
			return &validate.ConstraintViolation{
				Property:   def.Name,
				Constraint: "tag",
				Reason:     "patched tag is not declared and the trait is not extendable",
			}
		}
		if err := validate.Property(p, v); err != nil {
			return err
		}
	}

	i.mu.Lock()
	for tag, v := range fields {
		i.fields[tag] = v
	}
	i.mu.Unlock()

	i.notify(fields)
	return nil
}

// Sync validates a full property struct and replaces the state with it.
// Required properties must all be present.
func (i *TraitInstance) Sync(v schema.Value) error {
	if err := validate.Message(i.schema.Properties, v); err != nil {
		return err
	}

	replacement := make(map[uint32]schema.Value, len(v.Fields()))
	for tag, f := range v.Fields() {
		replacement[tag] = f
	}

	i.mu.Lock()
	i.fields = replacement
	i.mu.Unlock()

	i.notify(replacement)
	return nil
}

func (i *TraitInstance) notify(changed map[uint32]schema.Value) {
	if i.onUpdate == nil || len(changed) == 0 {
		return
	}
	copied := make(map[uint32]schema.Value, len(changed))
	for tag, v := range changed {
		copied[tag] = v
	}
	i.onUpdate(copied)
}
