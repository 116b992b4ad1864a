package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/exam-portal/internal/testutil"
)

func TestStorageRepo_RoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewStorageRepo(db, StorageRepoOptions{Namespace: "device-a"})

	_, found, err := repo.Get(ctx, "userRole")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Set(ctx, "userRole", "student"))
	require.NoError(t, repo.Set(ctx, "userRole", "teacher"))

	v, found, err := repo.Get(ctx, "userRole")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "teacher", v)

	require.NoError(t, repo.Remove(ctx, "userRole"))
	require.NoError(t, repo.Remove(ctx, "userRole"))
	_, found, err = repo.Get(ctx, "userRole")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorageRepo_NamespacesAreIsolated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	a := NewStorageRepo(db, StorageRepoOptions{Namespace: "device-a"})
	b := a.ForNamespace("device-b")

	require.NoError(t, a.Set(ctx, "authToken", "token-a"))
	_, found, err := b.Get(ctx, "authToken")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorageRepo_ExpiryAndPurge(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	clock := NewFixedTimeProvider(time.Now().UTC())
	repo := NewStorageRepo(db, StorageRepoOptions{Namespace: "device-a", TTL: time.Minute, Time: clock})

	require.NoError(t, repo.Set(ctx, "authToken", "tok"))
	_, found, err := repo.Get(ctx, "authToken")
	require.NoError(t, err)
	assert.True(t, found)

	clock.AddTime(2 * time.Minute)
	_, found, err = repo.Get(ctx, "authToken")
	require.NoError(t, err)
	assert.False(t, found)

	n, err := repo.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStorageRepo_EmptyKey(t *testing.T) {
	repo := NewStorageRepo(nil, StorageRepoOptions{})
	ctx := context.Background()
	_, _, err := repo.Get(ctx, "")
	assert.ErrorIs(t, err, ErrStorageKeyRequired)
	assert.ErrorIs(t, repo.Set(ctx, "", "v"), ErrStorageKeyRequired)
	assert.ErrorIs(t, repo.Remove(ctx, ""), ErrStorageKeyRequired)
}
