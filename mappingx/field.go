package mappingx

import (
	"encoding/json"
	"fmt"
)

type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeText    FieldType = "text"
	FieldTypeDate    FieldType = "date"
	FieldTypeDouble  FieldType = "double"
	FieldTypeFloat   FieldType = "float"
	FieldTypeInteger FieldType = "integer"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeObject  FieldType = "object"
	FieldTypeNested  FieldType = "nested"
)

// DateFormat accepts timestamps with and without milliseconds.
const DateFormat = "yyyy-MM-dd'T'HH:mm:ssZ||yyyy-MM-dd'T'HH:mm:ss.SSSZ"

func (t FieldType) String() string {
	return string(t)
}

// FieldMapping describes how a single field is indexed. Values are immutable:
// every method returning a FieldMapping returns a copy.
type FieldMapping struct {
	attrs map[string]any
}

// Modifier derives a new FieldMapping from an existing one.
type Modifier func(FieldMapping) FieldMapping

// DefineFieldMapping creates a mapping of the given type and applies the modifiers in order.
func DefineFieldMapping(t FieldType, modifiers ...Modifier) FieldMapping {
	return FieldMapping{attrs: map[string]any{"type": string(t)}}.Apply(modifiers...)
}

func defineFieldMapping(attrs map[string]any, modifiers ...Modifier) FieldMapping {
	return FieldMapping{attrs: attrs}.Apply(modifiers...)
}

// ExactString is a string matched as a whole, without analysis.
func ExactString(modifiers ...Modifier) FieldMapping {
	return defineFieldMapping(map[string]any{
		"type":  string(FieldTypeString),
		"index": "not_analyzed",
	}, modifiers...)
}

// AnalyzedText is a whitespace tokenized string indexing only document ids.
func AnalyzedText(modifiers ...Modifier) FieldMapping {
	return defineFieldMapping(map[string]any{
		"type":          string(FieldTypeString),
		"index":         "analyzed",
		"omit_norms":    "true",
		"analyzer":      "whitespace",
		"index_options": "docs",
	}, modifiers...)
}

func Date(modifiers ...Modifier) FieldMapping {
	return defineFieldMapping(map[string]any{
		"type":   string(FieldTypeDate),
		"format": DateFormat,
	}, modifiers...)
}

func Double(modifiers ...Modifier) FieldMapping {
	return DefineFieldMapping(FieldTypeDouble, modifiers...)
}

func Float(modifiers ...Modifier) FieldMapping {
	return DefineFieldMapping(FieldTypeFloat, modifiers...)
}

func Integer(modifiers ...Modifier) FieldMapping {
	return DefineFieldMapping(FieldTypeInteger, modifiers...)
}

// Boolean loads its field data eagerly.
func Boolean(modifiers ...Modifier) FieldMapping {
	return DefineFieldMapping(FieldTypeBoolean, append([]Modifier{EagerFieldData}, modifiers...)...)
}

// Stored keeps the original value of the field retrievable.
func Stored(f FieldMapping) FieldMapping {
	return f.With("store", "yes")
}

// NotIndexed excludes the field from the index.
func NotIndexed(f FieldMapping) FieldMapping {
	return f.With("index", "no")
}

// DocValues backs the field with on-disk doc values instead of the field data cache.
func DocValues(f FieldMapping) FieldMapping {
	return f.With("doc_values", true)
}

func EagerFieldData(f FieldMapping) FieldMapping {
	return f.With("fielddata", map[string]any{"loading": "eager"})
}

// WithAnalyzer returns a modifier setting the analyzer of a text field.
func WithAnalyzer(analyzer string) Modifier {
	return func(f FieldMapping) FieldMapping {
		return f.With("analyzer", analyzer)
	}
}

// Apply returns a copy of f with the modifiers applied in order.
func (f FieldMapping) Apply(modifiers ...Modifier) FieldMapping {
	out := FieldMapping{attrs: cloneMap(f.attrs)}
	for _, m := range modifiers {
		out = m(out)
	}
	return out
}

// With returns a copy of f with the attribute set.
func (f FieldMapping) With(key string, value any) FieldMapping {
	attrs := cloneMap(f.attrs)
	attrs[key] = cloneValue(value)
	return FieldMapping{attrs: attrs}
}

func (f FieldMapping) Type() FieldType {
	t, _ := f.attrs["type"].(string)
	return FieldType(t)
}

// Get returns a copy of the attribute.
func (f FieldMapping) Get(key string) (any, bool) {
	v, ok := f.attrs[key]
	return cloneValue(v), ok
}

// Attributes returns a deep copy of the mapping attributes.
func (f FieldMapping) Attributes() map[string]any {
	return cloneMap(f.attrs)
}

func (f FieldMapping) IsZero() bool {
	return len(f.attrs) == 0
}

func (f FieldMapping) MarshalJSON() ([]byte, error) {
	if f.attrs == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(f.attrs)
}

func (f FieldMapping) String() string {
	b, err := f.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", f.attrs)
	}
	return string(b)
}
