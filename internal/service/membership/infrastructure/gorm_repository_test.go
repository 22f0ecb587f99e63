package infrastructure

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/pkg/database"
	"memberflow/internal/service/membership/domain"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), database.Config())
	require.NoError(t, err)
	return db, mock
}

var cardColumns = []string{"id", "user_id", "merchant_id", "points", "tier", "version", "created_at", "updated_at"}

func TestGormCardRepositoryInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormCardRepository(db)

	mock.ExpectExec("INSERT INTO `membership_card`").
		WithArgs("c-1", "u-1", "m-1", int64(0), "BRONZE", int64(1), testNow, testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Insert(context.Background(), mustCard(t, "c-1", "u-1", "m-1", testNow)))

	mock.ExpectExec("INSERT INTO `membership_card`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'u-1-m-1' for key 'uk_card_user_merchant'"})
	err := repo.Insert(context.Background(), mustCard(t, "c-2", "u-1", "m-1", testNow))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCardRepositoryGet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormCardRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `membership_card` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(cardColumns).
			AddRow("c-1", "u-1", "m-1", 600, "SILVER", 3, testNow, testNow))
	card, err := repo.Get(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, int64(600), card.Points)
	assert.Equal(t, domain.TierSilver, card.Tier)
	assert.Equal(t, int64(3), card.Version)

	mock.ExpectQuery("SELECT \\* FROM `membership_card` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(cardColumns))
	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrCardNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCardRepositoryUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormCardRepository(db)
	card := mustCard(t, "c-1", "u-1", "m-1", testNow)
	card.Points = 100

	mock.ExpectExec("UPDATE `membership_card` SET .* WHERE id = \\? AND version = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), card, 1))
	assert.Equal(t, int64(2), card.Version)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCardRepositoryUpdateStaleVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormCardRepository(db)
	card := mustCard(t, "c-1", "u-1", "m-1", testNow)

	mock.ExpectExec("UPDATE `membership_card` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `membership_card` WHERE id = \\?").
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	err := repo.Update(context.Background(), card, 1)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, int64(1), card.Version)

	mock.ExpectExec("UPDATE `membership_card` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `membership_card` WHERE id = \\?").
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))

	err = repo.Update(context.Background(), card, 1)
	assert.ErrorIs(t, err, domain.ErrCardNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCardRepositoryDeadlockIsRetryable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormCardRepository(db)

	mock.ExpectExec("UPDATE `membership_card` SET").
		WillReturnError(&mysqldriver.MySQLError{Number: 1213, Message: "Deadlock found"})
	err := repo.Update(context.Background(), mustCard(t, "c-1", "u-1", "m-1", testNow), 1)
	assert.True(t, apperr.Retryable(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCardRepositoryListByOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormCardRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `membership_card` WHERE user_id = \\? ORDER BY created_at DESC,id ASC").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(cardColumns).
			AddRow("c-2", "u-1", "m-2", 0, "BRONZE", 1, testNow, testNow).
			AddRow("c-1", "u-1", "m-1", 1500, "GOLD", 4, testNow, testNow))

	cards, err := repo.ListByOwner(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "c-2", cards[0].ID)
	assert.Equal(t, domain.TierGold, cards[1].Tier)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMerchantRepositoryGet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormMerchantRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `merchant` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "accent_color", "active", "created_at"}).
			AddRow("m-1", "Corner Cafe", "corner-cafe", "#AA3300", true, testNow))

	m, err := repo.Get(context.Background(), "m-1")
	require.NoError(t, err)
	assert.True(t, m.Active)
	assert.Equal(t, "corner-cafe", m.Slug)

	assert.NoError(t, mock.ExpectationsWereMet())
}
