package services

import (
	"bytes"
	"fmt"
	"image/color"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cppla/toolshed/assets"
	"github.com/cppla/toolshed/config"
	"github.com/cppla/toolshed/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), config.GormConfig("silent"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db, models.All()...))
	return db
}

type testEnv struct {
	db    *gorm.DB
	fs    afero.Fs
	store *assets.Store
	cache *assets.Cache
	tools *ToolService
}

func newTestEnv(t *testing.T, log *zap.Logger) *testEnv {
	t.Helper()
	db := newTestDB(t)
	fs := afero.NewMemMapFs()
	store := assets.NewStore(fs, "uploads")
	cache := assets.NewCache(fs)
	return &testEnv{
		db:    db,
		fs:    fs,
		store: store,
		cache: cache,
		tools: NewToolService(db, store, cache, log),
	}
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 30, G: 120, B: 200, A: 255})
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func writeJPEG(t *testing.T, fs afero.Fs, p string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll("uploads", 0o755))
	require.NoError(t, afero.WriteFile(fs, p, jpegBytes(t, 400, 500), 0o644))
}

func seedUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	u := models.User{Email: email, PasswordHash: "x", Verified: true}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func exists(t *testing.T, fs afero.Fs, p string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, p)
	require.NoError(t, err)
	return ok
}

type formFile struct {
	field, name string
	data        []byte
}

// multipartFiles builds FileHeaders the way net/http parses them from a request.
func multipartFiles(t *testing.T, files ...formFile) map[string][]*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File
}
