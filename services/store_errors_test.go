package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/cppla/toolshed/assets"
	"github.com/cppla/toolshed/common"
	"github.com/cppla/toolshed/config"
)

func newMockedTools(t *testing.T) (*ToolService, *AuthService, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), config.GormConfig("silent"))
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	store := assets.NewStore(fs, "uploads")
	return NewToolService(db, store, assets.NewCache(fs), nil), NewAuthService(db, &fakeMailer{}, "http://x", nil), mock
}

func TestStoreFailuresMapToErrStore(t *testing.T) {
	down := errors.New("connection refused")
	ctx := context.Background()

	t.Run("search", func(t *testing.T) {
		tools, _, mock := newMockedTools(t)
		mock.ExpectQuery(`(?s)SELECT t\.id,.*FROM tools t`).WillReturnError(down)
		_, err := tools.Search(ctx, "drill")
		require.ErrorIs(t, err, common.ErrStore)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("detail", func(t *testing.T) {
		tools, _, mock := newMockedTools(t)
		mock.ExpectQuery("SELECT \\* FROM `tools`").WillReturnError(down)
		_, err := tools.Detail(ctx, 1)
		require.ErrorIs(t, err, common.ErrStore)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete row", func(t *testing.T) {
		tools, _, mock := newMockedTools(t)
		mock.ExpectQuery("SELECT .* FROM `tools`").
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "user_manual_path"}).AddRow(1, 7, nil))
		mock.ExpectQuery("SELECT \\* FROM `tool_images`").
			WillReturnRows(sqlmock.NewRows([]string{"id", "tool_id", "image_path"}))
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM `tool_images`").WillReturnError(down)
		mock.ExpectRollback()

		err := tools.Delete(ctx, 1, 7)
		require.ErrorIs(t, err, common.ErrStore)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("verify", func(t *testing.T) {
		_, auth, mock := newMockedTools(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE `users` SET").WillReturnError(down)
		mock.ExpectRollback()
		require.ErrorIs(t, auth.Verify(ctx, "abc"), common.ErrStore)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
