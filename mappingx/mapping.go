package mappingx

import (
	"encoding/json"
	"sort"

	"github.com/clinia/searchx/errorx"
	"github.com/samber/lo"
)

// Settings are top level mapping flags overriding the defaults.
type Settings map[string]any

// Fields maps a field name to its mapping.
type Fields map[string]FieldMapping

// IndexMapping is the mapping of one document type.
type IndexMapping struct {
	typeName string
	settings Settings
	fields   Fields
}

// NestedMapping is a type-less mapping embedded as the value of an object field.
type NestedMapping struct {
	settings Settings
	fields   Fields
}

func indexDefaults() map[string]any {
	return map[string]any{
		"dynamic": "strict",
		"_source": map[string]any{"enabled": false},
		"_all":    map[string]any{"enabled": false},
		"_ttl":    map[string]any{"enabled": true},
	}
}

// Time to live only applies to whole documents.
func nestedDefaults() map[string]any {
	return map[string]any{
		"dynamic": "strict",
		"_source": map[string]any{"enabled": false},
		"_all":    map[string]any{"enabled": false},
	}
}

// DefineMapping creates the mapping of the typeName document type. Settings may be nil.
func DefineMapping(typeName string, settings Settings, fields Fields) IndexMapping {
	return IndexMapping{
		typeName: typeName,
		settings: cloneMap(settings),
		fields:   lo.Assign(fields),
	}
}

// DefineNestedMapping creates a mapping for object sub-documents. Settings may be nil.
func DefineNestedMapping(settings Settings, fields Fields) NestedMapping {
	return NestedMapping{
		settings: cloneMap(settings),
		fields:   lo.Assign(fields),
	}
}

func body(defaults map[string]any, settings Settings, fields Fields) map[string]any {
	properties := make(map[string]any, len(fields))
	for name, f := range fields {
		properties[name] = f
	}
	defaults["properties"] = properties

	return lo.Assign(defaults, cloneMap(settings))
}

func (m IndexMapping) TypeName() string {
	return m.typeName
}

// Fields returns a copy of the field mappings.
func (m IndexMapping) Fields() Fields {
	return lo.Assign(m.fields)
}

func (m IndexMapping) Field(name string) (FieldMapping, bool) {
	f, ok := m.fields[name]
	return f, ok
}

// FieldNames returns the sorted field names.
func (m IndexMapping) FieldNames() []string {
	names := lo.Keys(m.fields)
	sort.Strings(names)
	return names
}

// Body returns the mapping of the type without the type name wrapper.
func (m IndexMapping) Body() map[string]any {
	return body(indexDefaults(), m.settings, m.fields)
}

// Document returns the mapping document keyed by the type name.
func (m IndexMapping) Document() map[string]any {
	return map[string]any{m.typeName: m.Body()}
}

func (m IndexMapping) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Document())
}

// Validate catches mappings the engine would reject for structural reasons.
func (m IndexMapping) Validate() error {
	if m.typeName == "" {
		return errorx.InvalidArgumentErrorf("mapping type name must not be empty")
	}
	return validateFields(m.typeName, m.fields)
}

func validateFields(owner string, fields Fields) error {
	names := lo.Keys(fields)
	sort.Strings(names)
	for _, name := range names {
		if name == "" {
			return errorx.InvalidArgumentErrorf("mapping %q declares a field without a name", owner)
		}
		if fields[name].Type() == "" {
			return errorx.InvalidArgumentErrorf("field %q of mapping %q has no type", name, owner)
		}
	}
	return nil
}

func (n NestedMapping) Fields() Fields {
	return lo.Assign(n.fields)
}

func (n NestedMapping) Body() map[string]any {
	return body(nestedDefaults(), n.settings, n.fields)
}

func (n NestedMapping) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Body())
}

func (n NestedMapping) Validate() error {
	return validateFields("nested", n.fields)
}

// Field embeds the nested mapping as an object field.
func (n NestedMapping) Field(modifiers ...Modifier) FieldMapping {
	attrs := n.Body()
	attrs["type"] = string(FieldTypeObject)
	return defineFieldMapping(attrs, modifiers...)
}
