package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/galleria-app/galleria/pkg/storage"
	"github.com/galleria-app/galleria/pkg/storage/sqlcommon"
	"github.com/galleria-app/galleria/pkg/storage/test"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestDatastore(t *testing.T) *Datastore {
	t.Helper()

	uri := "file:" + filepath.Join(t.TempDir(), "galleria.db")

	err := NewMigrationProvider().RunMigrations(context.Background(), storage.MigrationConfig{
		Engine:  "sqlite",
		URI:     uri,
		Timeout: 30 * time.Second,
	})
	require.NoError(t, err)

	ds, err := New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	t.Cleanup(ds.Close)

	return ds
}

func TestSQLiteDatastore(t *testing.T) {
	ds := newTestDatastore(t)
	test.RunAllTests(t, ds)
}

func TestPrepareDSN(t *testing.T) {
	dsn, err := PrepareDSN("file:galleria.db")
	require.NoError(t, err)
	require.Contains(t, dsn, "_pragma=journal_mode%28WAL%29")
	require.Contains(t, dsn, "_pragma=busy_timeout%28100%29")
	require.Contains(t, dsn, "_txlock=immediate")
}
