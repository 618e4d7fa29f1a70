package repository

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"course-guard/internal/db/dbtest"
	"course-guard/internal/device/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testDB *dbtest.Instance

func TestMain(m *testing.M) {
	flag.Parse()
	ctx := context.Background()
	if !testing.Short() {
		inst, err := dbtest.Start(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "device repository integration tests skipped: %v\n", err)
		}
		testDB = inst
	}
	code := m.Run()
	testDB.Close(ctx)
	os.Exit(code)
}

func newRepo(t *testing.T) *PostgresRepository {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres container not available")
	}
	require.NoError(t, testDB.Truncate(context.Background(), "registered_devices"))
	return NewPostgresRepository(testDB.DB)
}

func newDevice(accountID, fingerprint string, lastUsed time.Time) *domain.Device {
	return &domain.Device{
		ID:          uuid.New().String(),
		AccountID:   accountID,
		Fingerprint: fingerprint,
		Label:       "Windows PC",
		UserAgent:   "Mozilla/5.0 (Windows NT 10.0)",
		LastUsedAt:  lastUsed,
		CreatedAt:   lastUsed,
	}
}

func TestPostgres_ListByAccountOrdersByLastUsed(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	older := newDevice("acct-1", "fp-old", base.Add(-time.Hour))
	newer := newDevice("acct-1", "fp-new", base)
	other := newDevice("acct-2", "fp-other", base)
	for _, d := range []*domain.Device{older, newer, other} {
		require.NoError(t, repo.Create(ctx, d))
	}

	list, err := repo.ListByAccount(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, newer.ID, list[0].ID)
	require.Equal(t, older.ID, list[1].ID)

	require.NoError(t, repo.TouchLastUsed(ctx, older.ID, base.Add(time.Minute)))
	list, err = repo.ListByAccount(ctx, "acct-1")
	require.NoError(t, err)
	require.Equal(t, older.ID, list[0].ID)
}

func TestPostgres_ListByAccountEmpty(t *testing.T) {
	repo := newRepo(t)
	list, err := repo.ListByAccount(context.Background(), "nobody")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestPostgres_DeleteScopedToAccount(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	d := newDevice("acct-1", "fp-1", time.Now())
	require.NoError(t, repo.Create(ctx, d))

	removed, err := repo.DeleteByIDAndAccount(ctx, d.ID, "acct-2")
	require.NoError(t, err)
	require.False(t, removed)

	removed, err = repo.DeleteByIDAndAccount(ctx, d.ID, "acct-1")
	require.NoError(t, err)
	require.True(t, removed)

	list, err := repo.ListByAccount(ctx, "acct-1")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestPostgres_WithAccountLockSerializesInserts(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	const maxDevices = 2

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.WithAccountLock(ctx, "acct-race", func(locked Repository) error {
				list, err := locked.ListByAccount(ctx, "acct-race")
				if err != nil || len(list) >= maxDevices {
					return err
				}
				return locked.Create(ctx, newDevice("acct-race", fmt.Sprintf("fp-%d", i), time.Now()))
			})
		}(i)
	}
	wg.Wait()

	list, err := repo.ListByAccount(ctx, "acct-race")
	require.NoError(t, err)
	require.Len(t, list, maxDevices)
}
