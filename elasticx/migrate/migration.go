package migrate

import (
	"context"
	"sort"

	"github.com/clinia/searchx/elasticx"
	"github.com/clinia/searchx/errorx"
)

// MigrationFunc is used to define actions to be performed for a migration.
type MigrationFunc func(ctx context.Context, client elasticx.Client) error

// Migration represents single engine migration.
// Migration contains:
//
// - version: migration version, must be unique in migration list
//
// - description: text description of migration
//
// - up: callback which will be called in "up" migration process
//
// - down: callback which will be called in "down" migration process for reverting changes
type Migration struct {
	Version     uint
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

type Migrations []Migration

func (m Migrations) Sort() {
	sort.Slice(m, func(i, j int) bool {
		return m[i].Version < m[j].Version
	})
}

// Validate refuses version 0, which stands for "nothing applied", and duplicated versions.
func (m Migrations) Validate() error {
	seen := make(map[uint]struct{}, len(m))
	for _, mig := range m {
		if mig.Version == 0 {
			return errorx.InvalidArgumentErrorf("migration %q must have a version greater than 0", mig.Description)
		}
		if _, ok := seen[mig.Version]; ok {
			return errorx.InvalidArgumentErrorf("migration version %d is declared more than once", mig.Version)
		}
		seen[mig.Version] = struct{}{}
	}
	return nil
}

func HasVersion(migrations []Migration, version uint) bool {
	for _, m := range migrations {
		if m.Version == version {
			return true
		}
	}
	return false
}
