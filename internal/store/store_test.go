package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"openair-backend/internal/access"
	"openair-backend/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ClientFlag{}, &model.PushSubscription{}))
	return db
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}

func TestGormStore_SetFlagUpserts(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "client_flags"`) + `.*` + regexp.QuoteMeta(`ON CONFLICT ("client_id","key") DO UPDATE`)).
		WithArgs("client-1", access.DemoModeKey, "true", Any{}).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SetFlag(context.Background(), "client-1", access.DemoModeKey, "true"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DeleteFlag(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "client_flags" WHERE "client_flags"."client_id" = $1 AND "client_flags"."key" = $2`)).
		WithArgs("client-1", access.DemoModeKey).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteFlag(context.Background(), "client-1", access.DemoModeKey))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GetFlagErrors(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "client_flags"`)).
		WillReturnError(errors.New("connection reset"))

	_, ok, err := s.GetFlag(context.Background(), "client-1", access.DemoModeKey)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_FlagLifecycle(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()

	_, ok, err := s.GetFlag(ctx, "c1", access.DemoModeKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetFlag(ctx, "c1", access.DemoModeKey, "false"))
	require.NoError(t, s.SetFlag(ctx, "c1", access.DemoModeKey, "true"))

	v, ok, err := s.GetFlag(ctx, "c1", access.DemoModeKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	_, ok, err = s.GetFlag(ctx, "c2", access.DemoModeKey)
	require.NoError(t, err)
	assert.False(t, ok, "flags are scoped per client")

	require.NoError(t, s.DeleteFlag(ctx, "c1", access.DemoModeKey))
	require.NoError(t, s.DeleteFlag(ctx, "c1", access.DemoModeKey))
	_, ok, err = s.GetFlag(ctx, "c1", access.DemoModeKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFlags_BackAccessGate(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()
	backend := NewFlags(s)

	g, err := access.Open(ctx, backend.ForClient("c1"))
	require.NoError(t, err)
	require.NoError(t, g.EnterDemo(ctx))

	reloaded, err := access.Open(ctx, backend.ForClient("c1"))
	require.NoError(t, err)
	assert.Equal(t, access.StateDemo, reloaded.State())
}

func TestGormStore_Subscriptions(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()

	_, err := s.GetSubscription(ctx, "https://push.example/1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpsertSubscription(ctx, model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "k1", Auth: "a1"}))
	require.NoError(t, s.UpsertSubscription(ctx, model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "k2", Auth: "a2"}))
	require.NoError(t, s.UpsertSubscription(ctx, model.PushSubscription{Endpoint: "https://push.example/2", P256DH: "k3", Auth: "a3"}))

	sub, err := s.GetSubscription(ctx, "https://push.example/1")
	require.NoError(t, err)
	assert.Equal(t, "k2", sub.P256DH)
	assert.Equal(t, "a2", sub.Auth)
	assert.WithinDuration(t, time.Now(), sub.CreatedAt, time.Minute)

	subs, err := s.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	require.NoError(t, s.DeleteSubscription(ctx, "https://push.example/1"))
	subs, err = s.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push.example/2", subs[0].Endpoint)
}
