// Package migrate performs versioned migrations against the search engine.
package migrate

import (
	"context"
	"time"

	"github.com/clinia/searchx/elasticx"
	"github.com/clinia/searchx/errorx"
	"github.com/clinia/searchx/mappingx"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/refresh"
	"github.com/segmentio/ksuid"
)

const (
	DefaultMigrationsIndex = ".searchx-migrations"

	migrationTypeName = "migration"
	timestampLayout   = "2006-01-02T15:04:05.000-0700"
)

// AllAvailable used in "Up" or "Down" methods to run all available migrations.
const AllAvailable = -1

type versionRecord struct {
	Version     uint   `json:"version"`
	Description string `json:"description,omitempty"`
	Timestamp   string `json:"timestamp"`
	RunID       string `json:"run_id"`
	Revision    int64  `json:"revision"`
}

func migrationsMapping() mappingx.IndexMapping {
	return mappingx.DefineMapping(migrationTypeName, mappingx.Settings{
		"_source": map[string]any{"enabled": true},
	}, mappingx.Fields{
		"version":     mappingx.Integer(),
		"description": mappingx.ExactString(),
		"timestamp":   mappingx.Date(),
		"run_id":      mappingx.ExactString(),
		"revision":    mappingx.Integer(),
	})
}

// Migrator applies migrations and keeps track of the applied version.
// The version of every migrator lives in a single document of the migrations
// index, named after the migrator. Each change of version is saved with the next
// revision as strict external version, so two runs saving the same revision
// conflict instead of overwriting each other.
type Migrator struct {
	client          elasticx.Client
	name            string
	runID           string
	migrations      Migrations
	migrationsIndex string
	indexReady      bool
}

func NewMigrator(client elasticx.Client, name string, migrations ...Migration) *Migrator {
	internalMigrations := make(Migrations, len(migrations))
	copy(internalMigrations, migrations)
	internalMigrations.Sort()

	return &Migrator{
		client:          client,
		name:            name,
		runID:           ksuid.New().String(),
		migrations:      internalMigrations,
		migrationsIndex: DefaultMigrationsIndex,
	}
}

// SetMigrationsIndex replaces name of index for storing migration information.
// By default it is ".searchx-migrations".
func (m *Migrator) SetMigrationsIndex(name string) {
	m.migrationsIndex = name
	m.indexReady = false
}

// LatestMigrationVersion returns the highest version known to the migrator.
func (m *Migrator) LatestMigrationVersion() uint {
	if len(m.migrations) == 0 {
		return 0
	}
	return m.migrations[len(m.migrations)-1].Version
}

func (m *Migrator) documents() elasticx.IndexDocuments {
	return m.client.Index(m.migrationsIndex).Documents(migrationTypeName)
}

func (m *Migrator) ensureIndex(ctx context.Context) error {
	if m.indexReady {
		return nil
	}
	if _, err := m.client.Index(m.migrationsIndex).Reconcile(ctx, nil, migrationsMapping()); err != nil {
		return err
	}
	m.indexReady = true
	return nil
}

// current returns the stored record and its revision, 0 when nothing was applied yet.
func (m *Migrator) current(ctx context.Context) (versionRecord, int64, error) {
	if err := m.ensureIndex(ctx); err != nil {
		return versionRecord{}, 0, err
	}

	var rec versionRecord
	meta, err := m.documents().ReadDocument(ctx, m.name, &rec)
	if errorx.IsNotFoundError(err) {
		return versionRecord{}, 0, nil
	}
	if err != nil {
		return versionRecord{}, 0, err
	}

	return rec, meta.Version, nil
}

// Version returns current engine version and comment.
func (m *Migrator) Version(ctx context.Context) (uint, string, error) {
	rec, _, err := m.current(ctx)
	if err != nil {
		return 0, "", err
	}
	return rec.Version, rec.Description, nil
}

// SetVersion forcibly changes the version to provided.
func (m *Migrator) SetVersion(ctx context.Context, version uint, description string) error {
	_, revision, err := m.current(ctx)
	if err != nil {
		return err
	}
	return m.setVersion(ctx, revision, version, description)
}

func (m *Migrator) setVersion(ctx context.Context, revision int64, version uint, description string) error {
	rec := versionRecord{
		Version:     version,
		Description: description,
		Timestamp:   time.Now().UTC().Format(timestampLayout),
		RunID:       m.runID,
		Revision:    revision + 1,
	}

	_, err := m.documents().SaveDocument(ctx, m.name, rec, rec.Revision, elasticx.WithStrictVersion(), elasticx.WithRefresh(refresh.True))
	if elasticx.IsWriteConflict(err) {
		return errorx.AbortedErrorf("migrations of %q were changed by another run", m.name).WithOriginalError(err)
	}
	return err
}

// Up performs "up" migrations to latest available version.
// If n<=0 all "up" migrations with newer versions will be performed.
// If n>0 only n migrations with newer version will be performed.
func (m *Migrator) Up(ctx context.Context, n int) error {
	if err := m.migrations.Validate(); err != nil {
		return err
	}

	rec, revision, err := m.current(ctx)
	if err != nil {
		return err
	}
	if n <= 0 || n > len(m.migrations) {
		n = len(m.migrations)
	}

	for i, p := 0, 0; i < len(m.migrations) && p < n; i++ {
		migration := m.migrations[i]
		if migration.Version <= rec.Version || migration.Up == nil {
			continue
		}
		p++
		if err := migration.Up(ctx, m.client); err != nil {
			return err
		}
		if err := m.setVersion(ctx, revision, migration.Version, migration.Description); err != nil {
			return err
		}
		revision++
	}
	return nil
}

// Down performs "down" migration to oldest available version.
// If n<=0 all "down" migrations with older version will be performed.
// If n>0 only n migrations with older version will be performed.
func (m *Migrator) Down(ctx context.Context, n int) error {
	if err := m.migrations.Validate(); err != nil {
		return err
	}

	rec, revision, err := m.current(ctx)
	if err != nil {
		return err
	}
	if n <= 0 || n > len(m.migrations) {
		n = len(m.migrations)
	}

	for i, p := len(m.migrations)-1, 0; i >= 0 && p < n; i-- {
		migration := m.migrations[i]
		if migration.Version > rec.Version || migration.Down == nil {
			continue
		}
		p++
		if err := migration.Down(ctx, m.client); err != nil {
			return err
		}

		var prevMigration Migration
		if i > 0 {
			prevMigration = m.migrations[i-1]
		}
		if err := m.setVersion(ctx, revision, prevMigration.Version, prevMigration.Description); err != nil {
			return err
		}
		revision++
	}
	return nil
}
