package jsonx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawMessage(t *testing.T) {
	t.Run("should normalize an indented json string", func(t *testing.T) {
		raw := RawMessage(`{
			"foo": "bar",
			"baz": {"enabled": false}
		}`)

		assert.Equal(t, json.RawMessage(`{"baz":{"enabled":false},"foo":"bar"}`), raw)
	})

	t.Run("should panic on invalid json", func(t *testing.T) {
		assert.Panics(t, func() {
			RawMessage(`{`)
		})
	})
}
