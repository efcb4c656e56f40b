// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"github.com/clinia/searchx/loggerx"
	"github.com/spf13/pflag"
)

type (
	OptionModifier func(p *Provider)
)

func WithConfigFiles(files ...string) OptionModifier {
	return func(p *Provider) {
		p.files = append(p.files, files...)
	}
}

func WithFlags(flags *pflag.FlagSet) OptionModifier {
	return func(p *Provider) {
		p.flags = flags
	}
}

func WithLogger(l *loggerx.Logger) OptionModifier {
	return func(p *Provider) {
		p.logger = l
	}
}

// WithEnvPrefix loads environment variables starting with prefix. Nested keys are
// separated by a double underscore: SEARCHX_ELASTIC__POOL__MAX_CONNECTIONS sets
// elastic.pool.max_connections.
func WithEnvPrefix(prefix string) OptionModifier {
	return func(p *Provider) {
		p.envPrefix = prefix
	}
}

// WithSchemaResource registers a schema the root schema may reference by id.
// Defaults declared in the referenced schema are loaded as well.
func WithSchemaResource(id string, schema []byte) OptionModifier {
	return func(p *Provider) {
		p.resources[id] = schema
	}
}

func SkipValidation() OptionModifier {
	return func(p *Provider) {
		p.skipValidation = true
	}
}

func WithValue(key string, value interface{}) OptionModifier {
	return func(p *Provider) {
		p.forcedValues = append(p.forcedValues, tuple{Key: key, Value: value})
	}
}

func WithValues(values map[string]interface{}) OptionModifier {
	return func(p *Provider) {
		for key, value := range values {
			p.forcedValues = append(p.forcedValues, tuple{Key: key, Value: value})
		}
	}
}

func WithBaseValues(values map[string]interface{}) OptionModifier {
	return func(p *Provider) {
		for key, value := range values {
			p.baseValues = append(p.baseValues, tuple{Key: key, Value: value})
		}
	}
}
