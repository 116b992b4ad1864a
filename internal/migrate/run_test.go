package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/exam-portal/internal/migrate"
	"github.com/target/exam-portal/internal/testutil"
)

func TestVersions_Sorted(t *testing.T) {
	v, err := migrate.Versions()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_client_storage", "0002_client_storage_expiry"}, v)
}

func TestRun_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t) // already migrated

	applied, err := migrate.Run(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, applied)

	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), `SELECT count(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 2, n)
}
