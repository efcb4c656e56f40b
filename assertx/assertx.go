// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package assertx

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/sjson"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tHelper interface {
	Helper()
}

func PrettifyJSONPayload(t require.TestingT, payload interface{}) string {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	o, err := json.MarshalIndent(payload, "", "  ")
	require.NoError(t, err)
	return string(o)
}

// EqualAsJSON asserts that both values encode to the same JSON document.
// A json.RawMessage or a json.Marshaler is encoded through its own marshaling.
func EqualAsJSON(t require.TestingT, expected, actual interface{}, args ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	ebs, abs := encode(t, expected, actual, args...)
	if len(args) == 0 {
		args = []interface{}{PrettifyJSONPayload(t, actual)}
	}

	return assert.JSONEq(t, ebs, abs, args...)
}

// EqualAsJSONExcept is EqualAsJSON ignoring the given sjson paths on both sides.
func EqualAsJSONExcept(t require.TestingT, expected, actual interface{}, except []string, args ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	ebs, abs := encode(t, expected, actual, args...)
	if len(args) == 0 {
		args = []interface{}{PrettifyJSONPayload(t, actual)}
	}

	var err error
	for _, k := range except {
		ebs, err = sjson.Delete(ebs, k)
		require.NoError(t, err)

		abs, err = sjson.Delete(abs, k)
		require.NoError(t, err)
	}

	return assert.JSONEq(t, ebs, abs, args...)
}

func encode(t require.TestingT, expected, actual interface{}, args ...interface{}) (string, string) {
	var eb, ab bytes.Buffer
	require.NoError(t, json.NewEncoder(&eb).Encode(expected), args...)
	require.NoError(t, json.NewEncoder(&ab).Encode(actual), args...)
	return strings.TrimSpace(eb.String()), strings.TrimSpace(ab.String())
}
