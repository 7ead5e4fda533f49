package assets

import (
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/toolshed/common"
)

func TestStoreSave(t *testing.T) {
	mem := afero.NewMemMapFs()
	s := NewStore(mem, "uploads")
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }

	p, err := s.Save(strings.NewReader("jpeg bytes"), "My Drill.JPG")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p, "uploads/1700000000000-"), p)
	assert.True(t, strings.HasSuffix(p, ".jpg"), p)
	assert.NotContains(t, p, "Drill")

	data, err := afero.ReadFile(mem, p)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	other, err := s.Save(strings.NewReader("more"), "My Drill.JPG")
	require.NoError(t, err)
	assert.NotEqual(t, p, other)
}

func TestStoreRemove(t *testing.T) {
	mem := afero.NewMemMapFs()
	s := NewStore(mem, "uploads")

	p, err := s.Save(strings.NewReader("x"), "manual.pdf")
	require.NoError(t, err)

	ok, err := s.Exists(p)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Remove(p))
	ok, err = s.Exists(p)
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.Remove(p)
	require.ErrorIs(t, err, common.ErrFilesystem)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestStoreHTTPServesFilesOnly(t *testing.T) {
	mem := afero.NewMemMapFs()
	s := NewStore(mem, "uploads")
	p, err := s.Save(strings.NewReader("img"), "a.png")
	require.NoError(t, err)

	f, err := s.HTTP().Open("/" + strings.TrimPrefix(p, "uploads/"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = s.HTTP().Open("/")
	require.ErrorIs(t, err, fs.ErrNotExist)
	_, err = s.HTTP().Open("/missing.png")
	require.Error(t, err)
}
