package assertx

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

// Equal asserts that go-cmp finds both values equal and reports the diff otherwise.
// Nil and empty maps or slices are equal, as both encode to an empty mapping.
func Equal(t assert.TestingT, expected, actual interface{}, opts ...cmp.Option) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	opts = append([]cmp.Option{cmpopts.EquateEmpty()}, opts...)
	if diff := cmp.Diff(expected, actual, opts...); diff != "" {
		return assert.Fail(t, "Not equal (-expected +actual)", diff)
	}
	return true
}
