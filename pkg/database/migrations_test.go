package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsPresent(t *testing.T) {
	ok, err := hasEmbeddedMigrations()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMigrationsComeInPairs(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	assert.Equal(t, ups, downs, "every up migration needs a matching down")
	assert.NotEmpty(t, ups)
}

// Applying the startup DDL twice must yield an identical schema: every
// CREATE/ALTER statement carries an IF NOT EXISTS guard and drops use IF
// EXISTS, so re-running any migration is a no-op.
func TestMigrationDDLIsIdempotent(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		data, err := fs.ReadFile(migrationsFS, "migrations/"+e.Name())
		require.NoError(t, err)
		content := string(data)

		for _, line := range strings.Split(content, "\n") {
			trimmed := strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(trimmed, "CREATE TABLE"):
				assert.Contains(t, trimmed, "IF NOT EXISTS", "%s: %s", e.Name(), trimmed)
			case strings.HasPrefix(trimmed, "CREATE INDEX"), strings.HasPrefix(trimmed, "CREATE UNIQUE INDEX"):
				assert.Contains(t, trimmed, "IF NOT EXISTS", "%s: %s", e.Name(), trimmed)
			case strings.HasPrefix(trimmed, "CREATE EXTENSION"):
				assert.Contains(t, trimmed, "IF NOT EXISTS", "%s: %s", e.Name(), trimmed)
			case strings.HasPrefix(trimmed, "ADD COLUMN"):
				assert.Contains(t, trimmed, "IF NOT EXISTS", "%s: %s", e.Name(), trimmed)
			case strings.HasPrefix(trimmed, "DROP TABLE"), strings.HasPrefix(trimmed, "DROP INDEX"):
				assert.Contains(t, trimmed, "IF EXISTS", "%s: %s", e.Name(), trimmed)
			}
		}
	}
}
