package versions

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/logging"
	"github.com/agentstation/segmaster/pkg/segments"
)

type stubStore struct {
	record *segments.VersionRecord
	err    error
}

func (s *stubStore) Latest(context.Context, Key) (*segments.VersionRecord, error) {
	return s.record, s.err
}

func (s *stubStore) Record(context.Context, Key, segments.VersionRecord) error {
	return s.err
}

func TestSelect(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := Select(db, "", afero.NewMemMapFs(), "/releases")
	require.NoError(t, err)
	assert.IsType(t, &Warehouse{}, store)

	store, err = Select(nil, "", afero.NewMemMapFs(), "/releases")
	require.NoError(t, err)
	assert.IsType(t, &Manifest{}, store)
}

func TestSelectInvalidTable(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := Select(db, "bad; DROP", afero.NewMemMapFs(), "/releases")
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
	assert.False(t, errors.IsValidationError(err))
	assert.Nil(t, store)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	key := Key{Domain: "acme", DataProduct: "default", SegmentID: "s1"}

	t.Run("absent", func(t *testing.T) {
		v, err := NewResolver(&stubStore{}, nil).Resolve(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 0, v)
	})

	t.Run("present", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		store := &stubStore{record: &segments.VersionRecord{SegmentID: "s1", Version: 5, MasterProjectID: "m5"}}
		v, err := NewResolver(store, tl.Logger).Resolve(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 5, v)
		tl.AssertContains(t, "resolved latest version")
	})

	t.Run("store failure", func(t *testing.T) {
		_, err := NewResolver(&stubStore{err: assert.AnError}, nil).Resolve(ctx, key)
		assert.ErrorIs(t, err, assert.AnError)
	})
}
