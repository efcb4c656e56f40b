package jsonx

import "encoding/json"

// RawMessage returns the normalized form of a JSON document.
// This is useful for testing json payload.
// The function will panic if the input is not valid json.
func RawMessage(in string) json.RawMessage {
	var v interface{}
	if err := json.Unmarshal([]byte(in), &v); err != nil {
		panic(err)
	}

	out, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return out
}
