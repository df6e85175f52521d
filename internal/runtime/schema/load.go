package schema

import "fmt"

// Load validates a trait document and builds the immutable TraitSchema. It
// either returns a fully usable schema or an error; no partially-loaded
// schema ever escapes.
func Load(doc *Document) (*TraitSchema, error) {
	if doc == nil {
		return nil, &SchemaError{Kind: UnknownReference, Path: "document", Detail: "document is nil"}
	}
	if doc.Name == "" {
		return nil, &SchemaError{Kind: UnknownReference, Path: "document", Detail: "trait name is required"}
	}
	if doc.Version == 0 {
		return nil, &SchemaError{Kind: InvalidRange, Path: doc.Name, Detail: "version must be >= 1"}
	}

	enums, err := loadEnums(doc)
	if err != nil {
		return nil, err
	}

	properties, err := loadMessage(&MessageDocument{
		Name:           doc.Name,
		ReservedTagMin: doc.ReservedTagMin,
		ReservedTagMax: doc.ReservedTagMax,
		Extendable:     doc.Extendable,
		Properties:     doc.Properties,
	}, doc.Name, enums)
	if err != nil {
		return nil, err
	}

	ts := &TraitSchema{
		VendorID:   doc.VendorID,
		TraitID:    doc.TraitID,
		Version:    doc.Version,
		Name:       doc.Name,
		Properties: properties,

		enumsByName:  enums,
		commandsByID: make(map[uint32]*CommandDef, len(doc.Commands)),
		eventsByID:   make(map[uint32]*EventDef, len(doc.Events)),
	}
	for _, e := range enums {
		ts.Enums = append(ts.Enums, e)
	}

	for i := range doc.Commands {
		cd := &doc.Commands[i]
		path := fmt.Sprintf("%s.commands.%s", doc.Name, cd.Name)
		if _, dup := ts.commandsByID[cd.ID]; dup {
			return nil, &SchemaError{Kind: DuplicateTag, Path: path, Detail: fmt.Sprintf("command id %d already declared", cd.ID)}
		}
		if cd.Request == nil {
			return nil, &SchemaError{Kind: UnknownReference, Path: path, Detail: "command request message is required"}
		}
		request, err := loadMessage(cd.Request, path+".request", enums)
		if err != nil {
			return nil, err
		}
		var response *MessageDef
		if cd.Response != nil {
			response, err = loadMessage(cd.Response, path+".response", enums)
			if err != nil {
				return nil, err
			}
		}
		command := &CommandDef{ID: cd.ID, Name: cd.Name, Request: request, Response: response}
		ts.Commands = append(ts.Commands, command)
		ts.commandsByID[cd.ID] = command
	}

	for i := range doc.Events {
		ed := &doc.Events[i]
		path := fmt.Sprintf("%s.events.%s", doc.Name, ed.Name)
		if _, dup := ts.eventsByID[ed.ID]; dup {
			return nil, &SchemaError{Kind: DuplicateTag, Path: path, Detail: fmt.Sprintf("event id %d already declared", ed.ID)}
		}
		if ed.Payload == nil {
			return nil, &SchemaError{Kind: UnknownReference, Path: path, Detail: "event payload message is required"}
		}
		payload, err := loadMessage(ed.Payload, path+".payload", enums)
		if err != nil {
			return nil, err
		}
		event := &EventDef{ID: ed.ID, Name: ed.Name, Payload: payload}
		ts.Events = append(ts.Events, event)
		ts.eventsByID[ed.ID] = event
	}

	return ts, nil
}

func loadEnums(doc *Document) (map[string]*EnumDef, error) {
	enums := make(map[string]*EnumDef, len(doc.Enums))
	for i := range doc.Enums {
		ed := &doc.Enums[i]
		path := fmt.Sprintf("%s.enums.%s", doc.Name, ed.Name)
		if _, dup := enums[ed.Name]; dup {
			return nil, &SchemaError{Kind: DuplicateTag, Path: path, Detail: "enum redeclared"}
		}

		def := &EnumDef{
			Name:       ed.Name,
			Extendable: ed.Extendable,
			Items:      make([]EnumItem, 0, len(ed.Items)),
			byValue:    make(map[int64]string, len(ed.Items)),
		}
		names := make(map[string]struct{}, len(ed.Items))
		for _, item := range ed.Items {
			if _, dup := names[item.Name]; dup {
				return nil, &SchemaError{Kind: DuplicateTag, Path: path, Detail: fmt.Sprintf("enum item %q redeclared", item.Name)}
			}
			if _, dup := def.byValue[item.Value]; dup {
				return nil, &SchemaError{Kind: DuplicateTag, Path: path, Detail: fmt.Sprintf("enum value %d assigned twice", item.Value)}
			}
			names[item.Name] = struct{}{}
			def.byValue[item.Value] = item.Name
			def.Items = append(def.Items, EnumItem{Name: item.Name, Value: item.Value})
		}
		enums[ed.Name] = def
	}
	return enums, nil
}

func loadMessage(md *MessageDocument, path string, enums map[string]*EnumDef) (*MessageDef, error) {
	if md.ReservedTagMin == 0 || md.ReservedTagMin > md.ReservedTagMax {
		return nil, &SchemaError{
			Kind: InvalidRange,
			Path: path,
			Detail: fmt.Sprintf("reserved tag range [%d, %d] is invalid",
				md.ReservedTagMin, md.ReservedTagMax),
		}
	}

	def := &MessageDef{
		Name:           md.Name,
		ReservedTagMin: md.ReservedTagMin,
		ReservedTagMax: md.ReservedTagMax,
		Extendable:     md.Extendable,
		byTag:          make(map[uint32]*PropertyDef, len(md.Properties)),
	}

	for i := range md.Properties {
		pd := &md.Properties[i]
		ppath := fmt.Sprintf("%s.%s", path, pd.Name)

		if pd.Tag < md.ReservedTagMin || pd.Tag > md.ReservedTagMax {
			return nil, &SchemaError{
				Kind: TagOutOfRange,
				Path: ppath,
				Detail: fmt.Sprintf("tag %d outside reserved range [%d, %d]",
					pd.Tag, md.ReservedTagMin, md.ReservedTagMax),
			}
		}
		if _, dup := def.byTag[pd.Tag]; dup {
			return nil, &SchemaError{Kind: DuplicateTag, Path: ppath, Detail: fmt.Sprintf("tag %d already assigned", pd.Tag)}
		}

		prop, err := loadProperty(pd, ppath, enums)
		if err != nil {
			return nil, err
		}
		def.Properties = append(def.Properties, prop)
		def.byTag[prop.Tag] = prop
	}

	return def, nil
}

func loadProperty(pd *PropertyDocument, path string, enums map[string]*EnumDef) (*PropertyDef, error) {
	typ, ok := ParseType(pd.Type)
	if !ok {
		return nil, &SchemaError{Kind: UnknownReference, Path: path, Detail: fmt.Sprintf("unknown type %q", pd.Type)}
	}

	prop := &PropertyDef{
		Tag:      pd.Tag,
		Name:     pd.Name,
		Type:     typ,
		Writable: pd.Writable,
		Optional: pd.Optional,
		Nullable: pd.Nullable,
	}
	if pd.Static {
		prop.Variability = Static
	}

	switch typ {
	case TypeInt, TypeUint, TypeNumber:
		nc, err := loadNumberConstraints(pd, typ, path)
		if err != nil {
			return nil, err
		}
		prop.Number = nc

	case TypeString, TypeBytes:
		if pd.MaxLength != nil {
			if *pd.MaxLength < 0 {
				return nil, &SchemaError{Kind: InvalidRange, Path: path, Detail: "max_length cannot be negative"}
			}
			prop.String = &StringConstraints{MaxLength: *pd.MaxLength}
		}

	case TypeEnum:
		if pd.Enum == "" {
			return nil, &SchemaError{Kind: UnknownReference, Path: path, Detail: "enum property must name its enumeration"}
		}
		def, ok := enums[pd.Enum]
		if !ok {
			return nil, &SchemaError{Kind: UnknownReference, Path: path, Detail: fmt.Sprintf("enum %q is not declared", pd.Enum)}
		}
		prop.Enum = def

	case TypeStruct:
		if pd.Message == nil {
			return nil, &SchemaError{Kind: UnknownReference, Path: path, Detail: "struct property must declare its message"}
		}
		nested, err := loadMessage(pd.Message, path, enums)
		if err != nil {
			return nil, err
		}
		prop.Message = nested

	case TypeMap:
		if pd.Key == nil || pd.Value == nil {
			return nil, &SchemaError{Kind: UnknownReference, Path: path, Detail: "map property must declare key and value"}
		}
		key, err := loadProperty(pd.Key, path+".key", enums)
		if err != nil {
			return nil, err
		}
		switch key.Type {
		case TypeInt, TypeUint, TypeString, TypeEnum:
		default:
			return nil, &SchemaError{Kind: InvalidRange, Path: path + ".key", Detail: fmt.Sprintf("%s is not a valid map key type", key.Type)}
		}
		elem, err := loadProperty(pd.Value, path+".value", enums)
		if err != nil {
			return nil, err
		}
		// Map entries travel under fixed pseudo-tags on the wire.
		key.Tag = mapKeyTag
		elem.Tag = mapValueTag
		prop.Key = key
		prop.Elem = elem
	}

	return prop, nil
}

// Pseudo-tags used for map entry encoding.
const (
	mapKeyTag   uint32 = 1
	mapValueTag uint32 = 2
)

func loadNumberConstraints(pd *PropertyDocument, typ Type, path string) (*NumberConstraints, error) {
	nc := &NumberConstraints{
		Precision: 1,
		Signed:    pd.Signed || typ == TypeInt,
	}

	switch {
	case pd.Min != nil && pd.Max != nil:
		nc.Min, nc.Max = *pd.Min, *pd.Max
	case pd.Min != nil:
		nc.Min, nc.Max = *pd.Min, maxNumeric
	case pd.Max != nil:
		nc.Min, nc.Max = minNumeric, *pd.Max
	default:
		nc.Min, nc.Max = minNumeric, maxNumeric
	}
	if nc.Min > nc.Max {
		return nil, &SchemaError{Kind: InvalidRange, Path: path, Detail: fmt.Sprintf("min %g exceeds max %g", nc.Min, nc.Max)}
	}
	if typ == TypeUint && pd.Signed {
		return nil, &SchemaError{Kind: InvalidRange, Path: path, Detail: "uint property cannot be signed"}
	}
	if nc.Min < 0 {
		if typ == TypeUint {
			return nil, &SchemaError{Kind: InvalidRange, Path: path, Detail: "uint property cannot have a negative min"}
		}
		nc.Signed = true
	}

	if pd.Precision != nil {
		if *pd.Precision <= 0 {
			return nil, &SchemaError{Kind: InvalidRange, Path: path, Detail: "precision must be positive"}
		}
		if typ != TypeNumber && *pd.Precision != 1 {
			return nil, &SchemaError{Kind: InvalidRange, Path: path, Detail: "precision is only meaningful on number properties"}
		}
		nc.Precision = *pd.Precision
	}

	switch pd.Width {
	case 0, 8, 16, 32, 64:
		nc.Width = pd.Width
	default:
		return nil, &SchemaError{Kind: InvalidRange, Path: path, Detail: fmt.Sprintf("width %d is not one of 8, 16, 32, 64", pd.Width)}
	}

	return nc, nil
}

// Numeric properties without declared bounds accept anything the wire can
// carry; the fixed-point width check still applies at encode time.
const (
	minNumeric = -1.7976931348623157e308
	maxNumeric = 1.7976931348623157e308
)
