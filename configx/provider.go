// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/clinia/searchx/errorx"
	"github.com/clinia/searchx/loggerx"
	"github.com/knadh/koanf"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/ory/jsonschema/v3"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/attribute"
)

const Delimiter = "."

type tuple struct {
	Key   string
	Value interface{}
}

// Provider holds a merged configuration. Sources are applied in this order, later ones
// winning: schema defaults, base values, config files, environment, flags, forced values.
type Provider struct {
	*koanf.Koanf

	schema         []byte
	resources      map[string][]byte
	files          []string
	flags          *pflag.FlagSet
	envPrefix      string
	skipValidation bool
	forcedValues   []tuple
	baseValues     []tuple
	logger         *loggerx.Logger
}

// New loads and validates a configuration against the given JSON schema.
func New(ctx context.Context, schema []byte, modifiers ...OptionModifier) (*Provider, error) {
	p := &Provider{
		schema:    schema,
		resources: map[string][]byte{},
		logger:    loggerx.NewNoop(),
	}

	for _, m := range modifiers {
		m(p)
	}

	id, compiler, err := p.newCompiler()
	if err != nil {
		return nil, err
	}

	compiled, err := compiler.Compile(ctx, id)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	k, err := p.newKoanf()
	if err != nil {
		return nil, err
	}

	if !p.skipValidation {
		if err := validate(k, compiled); err != nil {
			p.logger.WithError(err).Error(ctx, "the configuration is invalid", attribute.StringSlice("files", p.files))
			return nil, err
		}
	}

	p.Koanf = k
	p.logger.Debug(ctx, "configuration loaded", attribute.StringSlice("files", p.files), attribute.String("env_prefix", p.envPrefix))

	return p, nil
}

func (p *Provider) newKoanf() (*koanf.Koanf, error) {
	k := koanf.New(Delimiter)

	if err := k.Load(NewKoanfSchemaDefaults(p.schema, p.resources), nil); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := loadTuples(k, p.baseValues); err != nil {
		return nil, err
	}

	for _, f := range p.files {
		parser, err := parserFor(f)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(f), parser); err != nil {
			return nil, errorx.InvalidArgumentErrorf("unable to load config file %q", f).WithOriginalError(err)
		}
	}

	keys := schemaKeys(p.schema, p.resources)

	if p.envPrefix != "" {
		if err := k.Load(env.ProviderWithValue(p.envPrefix, Delimiter, p.envValue(keys)), nil); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	if p.flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(p.flags, Delimiter, k, p.flagValue(keys)), nil); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	if err := loadTuples(k, p.forcedValues); err != nil {
		return nil, err
	}

	return k, nil
}

func loadTuples(k *koanf.Koanf, tuples []tuple) error {
	if len(tuples) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(tuples))
	for _, t := range tuples {
		values[t.Key] = t.Value
	}
	return errors.WithStack(k.Load(confmap.Provider(values, Delimiter), nil))
}

func (p *Provider) envValue(keys map[string]schemaKey) func(key, value string) (string, interface{}) {
	return func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(key, p.envPrefix)
		key = strings.TrimPrefix(key, "_")
		key = strings.ReplaceAll(strings.ToLower(key), "__", Delimiter)
		if key == "" {
			return "", nil
		}

		sk, ok := keys[key]
		if !ok {
			return key, value
		}

		switch sk.Type {
		case "integer":
			if v, err := cast.ToInt64E(value); err == nil {
				return key, v
			}
		case "number":
			if v, err := cast.ToFloat64E(value); err == nil {
				return key, v
			}
		case "boolean":
			if v, err := cast.ToBoolE(value); err == nil {
				return key, v
			}
		case "array":
			return key, strings.Split(value, ",")
		}
		return key, value
	}
}

// flagValue keeps the text form of durations and of flags the schema types as strings,
// so they validate like the same value read from a file.
func (p *Provider) flagValue(keys map[string]schemaKey) func(f *pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		if sk, ok := keys[f.Name]; (ok && sk.Type == "string") || f.Value.Type() == "duration" {
			return f.Name, f.Value.String()
		}
		return f.Name, posflag.FlagVal(p.flags, f)
	}
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return kjson.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, errorx.InvalidArgumentErrorf("unsupported config file extension %q", filepath.Ext(path))
	}
}

func validate(k *koanf.Koanf, schema *jsonschema.Schema) error {
	raw, err := json.Marshal(k.Raw())
	if err != nil {
		return errors.WithStack(err)
	}

	if err := schema.Validate(bytes.NewReader(raw)); err != nil {
		return errorx.InvalidArgumentErrorf("invalid configuration: %s", err.Error()).WithOriginalError(err)
	}
	return nil
}

func (p *Provider) StringF(key string, fallback string) string {
	if !p.Exists(key) {
		return fallback
	}
	return p.String(key)
}

func (p *Provider) IntF(key string, fallback int) int {
	if !p.Exists(key) {
		return fallback
	}
	return p.Int(key)
}

func (p *Provider) BoolF(key string, fallback bool) bool {
	if !p.Exists(key) {
		return fallback
	}
	return p.Bool(key)
}

func (p *Provider) DurationF(key string, fallback time.Duration) time.Duration {
	if !p.Exists(key) {
		return fallback
	}
	return p.Duration(key)
}

func (p *Provider) StringsF(key string, fallback []string) []string {
	if !p.Exists(key) {
		return fallback
	}
	return p.Strings(key)
}
