package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorsync/internal/domain"
)

func TestNewDB_AppliesSchema(t *testing.T) {
	db, err := NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	var tables []string
	require.NoError(t, db.Select(&tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`))
	assert.Equal(t, []string{"emission_factors", "feed_configuration"}, tables)
}

func TestNewDB_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factors.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO feed_configuration (id, csv_url, created_at, updated_at)
		VALUES (1, 'https://example.test/feed.csv', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	var url string
	require.NoError(t, db.Get(&url, `SELECT csv_url FROM feed_configuration WHERE id = 1`))
	assert.Equal(t, "https://example.test/feed.csv", url)
}

func TestRunLock_SecondAcquireFails(t *testing.T) {
	lock := NewRunLock(":memory:")

	release, err := lock.TryAcquire(context.Background())
	require.NoError(t, err)

	_, err = lock.TryAcquire(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	release()
	release()

	again, err := lock.TryAcquire(context.Background())
	require.NoError(t, err)
	again()
}

// Each NewRunLock stands in for a separate factorsync process opening the
// same database file.
func TestRunLock_SharedAcrossHandlesOnSameFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factors.db")
	first := NewRunLock(path)
	second := NewRunLock(path)

	release, err := first.TryAcquire(context.Background())
	require.NoError(t, err)

	_, err = second.TryAcquire(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	release()

	again, err := second.TryAcquire(context.Background())
	require.NoError(t, err)
	again()
}

func TestRunLock_DifferentFilesDoNotContend(t *testing.T) {
	dir := t.TempDir()

	a, err := NewRunLock(filepath.Join(dir, "a.db")).TryAcquire(context.Background())
	require.NoError(t, err)
	defer a()

	b, err := NewRunLock(filepath.Join(dir, "b.db")).TryAcquire(context.Background())
	require.NoError(t, err)
	b()
}
