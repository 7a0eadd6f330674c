package photo

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertAt(t *testing.T, s Store, url string, at time.Time, current bool) *Photo {
	t.Helper()
	p := &Photo{ImageURL: url, CreatedAt: at, IsCurrent: current}
	require.NoError(t, s.Insert(context.Background(), p))
	return p
}

func TestRepository_GetAllOrdersByCreatedAtDesc(t *testing.T) {
	repo, store := newRepo(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// inserted out of order on purpose
	offsets := []int{3, 0, 5, 1, 4, 2}
	for _, h := range offsets {
		insertAt(t, store, "u", base.Add(time.Duration(h)*time.Hour), false)
	}

	photos, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, photos, len(offsets))
	for i := 1; i < len(photos); i++ {
		assert.True(t, photos[i-1].CreatedAt.After(photos[i].CreatedAt),
			"photo %d should be newer than photo %d", photos[i-1].ID, photos[i].ID)
	}
}

func TestRepository_TiesBreakOnID(t *testing.T) {
	repo, store := newRepo(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := insertAt(t, store, "a", at, false)
	b := insertAt(t, store, "b", at, false)

	photos, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, a.ID}, []int64{photos[0].ID, photos[1].ID})

	latest, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, b.ID, latest.ID)
}

func TestRepository_GetAllEmpty(t *testing.T) {
	repo, _ := newRepo(t)

	photos, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, photos)
	assert.Empty(t, photos)
}

func TestRepository_GetCurrentPrefersNewestWhenSeveralAreFlagged(t *testing.T) {
	repo, store := newRepo(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	insertAt(t, store, "old", base, true)
	newer := insertAt(t, store, "new", base.Add(time.Minute), true)
	insertAt(t, store, "plain", base.Add(time.Hour), false)

	cur, err := repo.GetCurrent(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, newer.ID, cur.ID)
}

func TestRepository_GetByID(t *testing.T) {
	repo, store := newRepo(t)
	p := insertAt(t, store, "u", time.Now(), false)

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u", got.ImageURL)

	got, err = repo.GetByID(context.Background(), p.ID+100)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = repo.GetByID(context.Background(), 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRepository_UpdateFieldsLeavesUnsetFieldsAlone(t *testing.T) {
	repo, store := newRepo(t)
	p := insertAt(t, store, "u", time.Now(), true)

	_, err := repo.UpdateFields(context.Background(), p.ID, Fields{
		Description:  Set("eerste"),
		LocationName: Set("Gouda"),
	})
	require.NoError(t, err)

	updated, err := repo.UpdateFields(context.Background(), p.ID, Fields{Description: Set("tweede")})
	require.NoError(t, err)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "tweede", *updated.Description)
	require.NotNil(t, updated.LocationName)
	assert.Equal(t, "Gouda", *updated.LocationName)
	assert.True(t, updated.IsCurrent)
}

func TestRepository_UpdateFieldsErrors(t *testing.T) {
	repo, _ := newRepo(t)

	_, err := repo.UpdateFields(context.Background(), 9999, Fields{Description: Set("x")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.UpdateFields(context.Background(), 1, Fields{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = repo.UpdateFields(context.Background(), -3, Fields{Description: Set("x")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRepository_DeleteAll(t *testing.T) {
	repo, store := newRepo(t)
	for i := 0; i < 3; i++ {
		insertAt(t, store, "u", time.Now(), i == 2)
	}

	require.NoError(t, repo.DeleteAll(context.Background()))
	photos, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestGormStore_RefusesUnsafeWrites(t *testing.T) {
	_, store := newRepo(t)
	ctx := context.Background()

	_, err := store.Update(ctx, nil, map[string]any{ColDescription: "x"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.Update(ctx, []Filter{Eq(ColID, 1)}, map[string]any{ColImageURL: "evil"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.Select(ctx, Query{Filters: []Filter{Eq("1=1; DROP TABLE photos", 1)}})
	assert.ErrorIs(t, err, ErrValidation)

	assert.ErrorIs(t, store.Delete(ctx, nil), ErrValidation)
}

func TestGormStore_NullFilter(t *testing.T) {
	_, store := newRepo(t)
	insertAt(t, store, "a", time.Now(), false)
	described := insertAt(t, store, "b", time.Now(), false)
	_, err := store.Update(context.Background(), []Filter{Eq(ColID, described.ID)}, map[string]any{ColDescription: "x"})
	require.NoError(t, err)

	rows, err := store.Select(context.Background(), Query{Filters: []Filter{Eq(ColDescription, nil)}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].ImageURL)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestMapDBError(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{"auth failure", &pgconn.PgError{Code: "28P01"}, true},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"network", timeoutErr{}, true},
		{"constraint", &pgconn.PgError{Code: "23505"}, false},
		{"other", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapDBError(tc.err)
			assert.Equal(t, tc.unavailable, errors.Is(got, ErrBackendUnavailable))
		})
	}
}
