package elasticx

import (
	"bytes"
	_ "embed"

	"github.com/ory/jsonschema/v3"
	"github.com/pkg/errors"
)

//go:embed config.schema.json
var ConfigSchema []byte

const ConfigSchemaID = "clinia://elastic-config"

// AddConfigSchema registers the connection config schema so other schemas can
// reference it as `clinia://elastic-config`.
func AddConfigSchema(c *jsonschema.Compiler) error {
	return errors.WithStack(c.AddResource(ConfigSchemaID, bytes.NewReader(ConfigSchema)))
}
