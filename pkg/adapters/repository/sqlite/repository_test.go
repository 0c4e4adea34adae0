package sqlite

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/core/services"
	"github.com/wadjakorntonsri/shortlink/pkg/logging"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	repo, err := NewSQLiteRepository("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestInsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	expiry := created.Add(48 * time.Hour)

	err := repo.Insert(ctx, &domain.Link{
		ShortCode: "abc", OriginalURL: "https://example.com/x", Owner: "u1",
		Expiry: &expiry, CreatedAt: created,
	})
	require.NoError(t, err)

	got, err := repo.GetByShortCode(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/x", got.OriginalURL)
	require.Equal(t, domain.Owner("u1"), got.Owner)
	require.Zero(t, got.Clicks)
	require.True(t, created.Equal(got.CreatedAt))
	require.NotNil(t, got.Expiry)
	require.True(t, expiry.Equal(*got.Expiry))

	_, err = repo.GetByShortCode(ctx, "ABC")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInsertDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Insert(ctx, &domain.Link{ShortCode: "abc", OriginalURL: "https://a.com", CreatedAt: time.Now()}))
	err := repo.Insert(ctx, &domain.Link{ShortCode: "abc", OriginalURL: "https://b.com", CreatedAt: time.Now()})
	require.ErrorIs(t, err, domain.ErrCodeAlreadyExists)

	got, err := repo.GetByShortCode(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, "https://a.com", got.OriginalURL)
}

func TestListOrderAndOwner(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, &domain.Link{ShortCode: "one", OriginalURL: "https://1.com", Owner: "a", CreatedAt: base}))
	require.NoError(t, repo.Insert(ctx, &domain.Link{ShortCode: "two", OriginalURL: "https://2.com", Owner: "a", CreatedAt: base.Add(1500 * time.Millisecond)}))
	require.NoError(t, repo.Insert(ctx, &domain.Link{ShortCode: "three", OriginalURL: "https://3.com", Owner: "b", CreatedAt: base.Add(time.Hour)}))

	links, err := repo.List(ctx, "a")
	require.NoError(t, err)
	require.Len(t, links, 2)
	require.Equal(t, "two", links[0].ShortCode)
	require.Equal(t, "one", links[1].ShortCode)

	links, err = repo.List(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, links)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "three", all[0].ShortCode)
}

func TestDeleteOwned(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.Insert(ctx, &domain.Link{ShortCode: "abc", OriginalURL: "https://a.com", Owner: "b", CreatedAt: time.Now()}))

	require.ErrorIs(t, repo.DeleteOwned(ctx, "abc", "a"), domain.ErrNotFound)
	_, err := repo.GetByShortCode(ctx, "abc")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteOwned(ctx, "abc", "b"))
	require.ErrorIs(t, repo.DeleteOwned(ctx, "abc", "b"), domain.ErrNotFound)

	// deleted codes are free again
	require.NoError(t, repo.Insert(ctx, &domain.Link{ShortCode: "abc", OriginalURL: "https://c.com", CreatedAt: time.Now()}))
	require.NoError(t, repo.DeleteOwned(ctx, "abc", ""))
}

func TestIncrementClicks(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.IncrementClicks(ctx, "zzz")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Insert(ctx, &domain.Link{ShortCode: "abc", OriginalURL: "https://a.com", CreatedAt: time.Now()}))
	for i := 1; i <= 5; i++ {
		got, err := repo.IncrementClicks(ctx, "abc")
		require.NoError(t, err)
		require.Equal(t, int64(i), got.Clicks)
		require.Equal(t, "https://a.com", got.OriginalURL)
	}
}

func TestConcurrentIncrementClicks(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.Insert(ctx, &domain.Link{ShortCode: "hot", OriginalURL: "https://a.com", CreatedAt: time.Now()}))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.IncrementClicks(ctx, "hot")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetByShortCode(ctx, "hot")
	require.NoError(t, err)
	require.Equal(t, int64(n), got.Clicks)
}

func TestConcurrentInsertSameCode(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	const n = 20
	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Insert(ctx, &domain.Link{ShortCode: "shared", OriginalURL: "https://a.com", CreatedAt: time.Now()})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrCodeAlreadyExists):
				conflicts.Add(1)
			default:
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	require.Equal(t, int32(n-1), conflicts.Load())
}

func TestRegistryConcurrentVisits(t *testing.T) {
	ctx := context.Background()
	reg := services.NewScopedRegistry(newTestRepo(t), services.WithLogger(logging.Discard()))

	_, err := reg.Create(ctx, ports.CreateLinkParams{OriginalURL: "https://a.com", ShortCode: "busy", Owner: "alice"})
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.RecordVisit(ctx, "busy")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	link, err := reg.Lookup(ctx, "busy")
	require.NoError(t, err)
	require.Equal(t, int64(n), link.Clicks)
}

func TestDump(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	links, err := repo.Dump(ctx)
	require.NoError(t, err)
	require.Empty(t, links)

	require.NoError(t, repo.Insert(ctx, &domain.Link{ShortCode: "a", OriginalURL: "https://a.com", CreatedAt: time.Now()}))
	require.NoError(t, repo.Insert(ctx, &domain.Link{ShortCode: "b", OriginalURL: "https://b.com", Owner: "x", CreatedAt: time.Now()}))

	links, err = repo.Dump(ctx)
	require.NoError(t, err)
	require.Len(t, links, 2)
	require.Equal(t, "a", links[0].ShortCode)
}

func TestClosedDatabaseIsStorageFailure(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Close())

	_, err := repo.GetByShortCode(context.Background(), "abc")
	require.ErrorIs(t, err, domain.ErrStorage)
}
