// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/ory/jsonschema/v3"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

func (p *Provider) newCompiler() (string, *jsonschema.Compiler, error) {
	id := gjson.GetBytes(p.schema, "$id").String()
	if id == "" {
		id = fmt.Sprintf("%s.json", uuid.Must(uuid.NewRandom()).String())
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(id, bytes.NewBuffer(p.schema)); err != nil {
		return "", nil, errors.WithStack(err)
	}

	// DO NOT REMOVE THIS
	compiler.ExtractAnnotations = true

	for rid, raw := range p.resources {
		if err := compiler.AddResource(rid, bytes.NewBuffer(raw)); err != nil {
			return "", nil, errors.WithStack(err)
		}
	}

	return id, compiler, nil
}

type schemaKey struct {
	Type    string
	Default gjson.Result
}

// schemaKeys flattens the object properties of a schema into dotted keys.
// References to registered resources are followed.
func schemaKeys(schema []byte, resources map[string][]byte) map[string]schemaKey {
	out := map[string]schemaKey{}

	var walk func(prefix string, node gjson.Result, depth int)
	walk = func(prefix string, node gjson.Result, depth int) {
		// Guards against reference cycles.
		if depth > 32 {
			return
		}
		if ref := node.Get("$ref"); ref.Exists() {
			if raw, ok := resources[strings.TrimSuffix(ref.String(), "#")]; ok {
				walk(prefix, gjson.ParseBytes(raw), depth+1)
			}
			return
		}

		node.Get("properties").ForEach(func(key, value gjson.Result) bool {
			path := key.String()
			if prefix != "" {
				path = prefix + Delimiter + path
			}

			sk := schemaKey{Type: value.Get("type").String(), Default: value.Get("default")}
			if ref := value.Get("$ref"); ref.Exists() && sk.Type == "" {
				if raw, ok := resources[strings.TrimSuffix(ref.String(), "#")]; ok {
					sk.Type = gjson.GetBytes(raw, "type").String()
				}
			}
			out[path] = sk

			walk(path, value, depth+1)
			return true
		})
	}
	walk("", gjson.ParseBytes(schema), 0)

	return out
}

// NewKoanfSchemaDefaults returns a provider loading every default declared in the schema.
func NewKoanfSchemaDefaults(schema []byte, resources map[string][]byte) koanf.Provider {
	values := map[string]interface{}{}
	for key, sk := range schemaKeys(schema, resources) {
		// Object defaults are expanded by their properties.
		if !sk.Default.Exists() || sk.Default.IsObject() {
			continue
		}
		values[key] = sk.Default.Value()
	}

	return confmap.Provider(values, Delimiter)
}
