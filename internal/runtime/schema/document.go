package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/MShaffar19/traitflow/internal/runtime/jsoncodec"
)

// Document is the JSON form of a trait definition, as produced by the schema
// compiler. It carries the same information as the authored trait files;
// Load turns it into an immutable TraitSchema.
type Document struct {
	VendorID       uint16             `json:"vendor_id"`
	TraitID        uint32             `json:"trait_id"`
	Version        uint32             `json:"version"`
	Name           string             `json:"name"`
	Extendable     bool               `json:"extendable,omitempty"`
	ReservedTagMin uint32             `json:"reserved_tag_min"`
	ReservedTagMax uint32             `json:"reserved_tag_max"`
	Enums          []EnumDocument     `json:"enums,omitempty"`
	Properties     []PropertyDocument `json:"properties"`
	Commands       []CommandDocument  `json:"commands,omitempty"`
	Events         []EventDocument    `json:"events,omitempty"`
}

// EnumDocument declares an enumeration in document form.
type EnumDocument struct {
	Name       string             `json:"name"`
	Extendable bool               `json:"extendable,omitempty"`
	Items      []EnumItemDocument `json:"items"`
}

// EnumItemDocument is one named enum value in document form.
type EnumItemDocument struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// PropertyDocument declares a property in document form. Constraint keys are
// interpreted according to the declared type; the meta-schema only enforces
// their shapes, Load enforces their consistency.
type PropertyDocument struct {
	Tag      uint32 `json:"tag"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Writable bool   `json:"writable,omitempty"`
	Static   bool   `json:"static,omitempty"`
	Optional bool   `json:"optional,omitempty"`
	Nullable bool   `json:"nullable,omitempty"`

	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Precision *float64 `json:"precision,omitempty"`
	Width     uint8    `json:"width,omitempty"`
	Signed    bool     `json:"signed,omitempty"`

	MaxLength *int `json:"max_length,omitempty"`

	Enum string `json:"enum,omitempty"`

	Message *MessageDocument  `json:"message,omitempty"`
	Key     *PropertyDocument `json:"key,omitempty"`
	Value   *PropertyDocument `json:"value,omitempty"`
}

// MessageDocument declares a nested message, command request/response, or
// event payload in document form.
type MessageDocument struct {
	Name           string             `json:"name"`
	ReservedTagMin uint32             `json:"reserved_tag_min"`
	ReservedTagMax uint32             `json:"reserved_tag_max"`
	Extendable     bool               `json:"extendable,omitempty"`
	Properties     []PropertyDocument `json:"properties"`
}

// CommandDocument declares a command in document form.
type CommandDocument struct {
	ID       uint32           `json:"id"`
	Name     string           `json:"name"`
	Request  *MessageDocument `json:"request"`
	Response *MessageDocument `json:"response,omitempty"`
}

// EventDocument declares an event in document form.
type EventDocument struct {
	ID      uint32           `json:"id"`
	Name    string           `json:"name"`
	Payload *MessageDocument `json:"payload"`
}

//go:embed document_schema.json
var documentMetaSchema []byte

var (
	metaSchemaOnce sync.Once
	metaSchema     *jsonschema.Schema
	metaSchemaErr  error
)

func compiledMetaSchema() (*jsonschema.Schema, error) {
	metaSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(documentMetaSchema))
		if err != nil {
			metaSchemaErr = fmt.Errorf("failed to unmarshal embedded meta-schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("trait-document.json", doc); err != nil {
			metaSchemaErr = fmt.Errorf("failed to add meta-schema resource: %w", err)
			return
		}
		metaSchema, metaSchemaErr = c.Compile("trait-document.json")
	})
	return metaSchema, metaSchemaErr
}

// Parse validates raw JSON against the trait document meta-schema, decodes
// it, and loads the resulting trait schema. It is the entry point for schema
// documents produced by the external compiler.
func Parse(raw []byte) (*TraitSchema, error) {
	compiled, err := compiledMetaSchema()
	if err != nil {
		return nil, err
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("trait document is not valid JSON: %w", err)
	}
	if err := compiled.Validate(instance); err != nil {
		return nil, fmt.Errorf("trait document rejected by meta-schema: %w", err)
	}

	var doc Document
	if err := jsoncodec.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode trait document: %w", err)
	}

	return Load(&doc)
}
