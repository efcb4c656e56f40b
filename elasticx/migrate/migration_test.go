package migrate

import (
	"testing"

	"github.com/clinia/searchx/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsSort(t *testing.T) {
	m := Migrations{{Version: 3}, {Version: 1}, {Version: 2}}
	m.Sort()

	assert.Equal(t, Migrations{{Version: 1}, {Version: 2}, {Version: 3}}, m)
}

func TestMigrationsValidate(t *testing.T) {
	require.NoError(t, Migrations{{Version: 1}, {Version: 2}}.Validate())
	require.NoError(t, Migrations{}.Validate())

	err := Migrations{{Version: 1}, {Version: 1}}.Validate()
	require.Error(t, err)
	assert.True(t, errorx.IsInvalidArgumentError(err))

	err = Migrations{{Version: 0, Description: "zero"}}.Validate()
	require.Error(t, err)
	assert.True(t, errorx.IsInvalidArgumentError(err))
}

func TestHasVersion(t *testing.T) {
	migrations := []Migration{{Version: 1}, {Version: 4}}

	assert.True(t, HasVersion(migrations, 4))
	assert.False(t, HasVersion(migrations, 2))
}
