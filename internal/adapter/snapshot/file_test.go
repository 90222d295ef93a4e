package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries() []domain.CatalogEntry {
	return []domain.CatalogEntry{
		domain.CatalogEntry{ID: 1, Name: "용산점", Address: "서울특별시 용산구 한강대로 42", AccessLevel: domain.AccessYellow}.
			WithCoordinates(domain.Coordinate{Lat: 37.5299, Lng: 126.9648}),
		{ID: 2, Name: "진해점", Address: "경상남도 창원시 진해구 충장로 1", AccessLevel: domain.AccessYellow},
	}
}

func TestFileStore_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "marts.json")
	store := NewFileStore(path)

	n, err := store.Save(context.Background(), entries())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(entries(), got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStore_SaveReplacesWholesaleWithoutTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "marts.json"))

	_, err := store.Save(context.Background(), entries())
	require.NoError(t, err)
	n, err := store.Save(context.Background(), entries()[1:])
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].ID)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "marts.json", files[0].Name())
}

func TestFileStore_SaveFailureIsPersistFailed(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewFileStore(filepath.Join(blocker, "marts.json")).Save(context.Background(), entries())
	require.ErrorIs(t, err, domain.ErrPersistFailed)
}

func TestFileStore_LoadMissing(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "absent.json")).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestValidate(t *testing.T) {
	bad := append(entries(),
		domain.CatalogEntry{ID: 1, Address: "중복", AccessLevel: domain.AccessGreen},
		domain.CatalogEntry{ID: 4, AccessLevel: "BLUE"}.WithCoordinates(domain.Coordinate{Lat: 120, Lng: 0}),
	)

	r := Validate(bad)
	assert.False(t, r.OK())
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 2, r.Resolved)
	assert.Equal(t, 2, r.Unresolved)
	assert.Equal(t, 2, r.ByAccess[domain.AccessYellow])
	assert.Len(t, r.Problems, 4)

	assert.True(t, Validate(entries()).OK())
}
