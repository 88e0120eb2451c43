package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/polinetwork/url-shortener/internal/database"
	"github.com/polinetwork/url-shortener/internal/models"
	"github.com/stretchr/testify/assert"
)

var (
	errUnknown      = errors.New("unknown error")
	errAffectedRows = errors.New("affected rows error")
)

var columns = []string{"id", "short_code", "original_url", "is_custom", "click_count", "created_at", "updated_at"}

func setupURLRepository(t testing.TB) (*URLRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}

	db := sqlx.NewDb(mockDB, "sqlmock")
	repo := NewURLRepository(db)

	t.Cleanup(func() {
		mockDB.Close()
		db.Close()
	})

	return repo, mock
}

func TestURLRepository_Create(t *testing.T) {
	t.Run("short code exists", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("code1", "https://example.com", false).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode})

		url, err := repo.Create(context.TODO(), "code1", "https://example.com", false)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrShortCodeExists)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("code1", "https://example.com", false).
			WillReturnError(errUnknown)

		url, err := repo.Create(context.TODO(), "code1", "https://example.com", false)

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		rows := sqlmock.NewRows(columns).
			AddRow(0, "custom1", "https://example.com", true, 0, time.Time{}, time.Time{})

		mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("custom1", "https://example.com", true).
			WillReturnRows(rows)

		wantURL := models.URL{
			ShortCode:   "custom1",
			OriginalURL: "https://example.com",
			IsCustom:    true,
		}

		url, err := repo.Create(context.TODO(), "custom1", "https://example.com", true)

		assert.NoError(t, err)
		assert.NotNil(t, url)
		assert.Equal(t, wantURL, *url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_GetByShortCode(t *testing.T) {
	t.Run("url not found", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`SELECT \* FROM urls`).
			WithArgs("code2").
			WillReturnError(sql.ErrNoRows)

		url, err := repo.GetByShortCode(context.TODO(), "code2")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`SELECT \* FROM urls`).
			WithArgs("code1").
			WillReturnError(errUnknown)

		url, err := repo.GetByShortCode(context.TODO(), "code1")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		rows := sqlmock.NewRows(columns).
			AddRow(0, "code1", "https://example.com", false, 3, time.Time{}, time.Time{})

		mock.ExpectQuery(`SELECT \* FROM urls`).
			WithArgs("code1").
			WillReturnRows(rows)

		wantURL := models.URL{
			ShortCode:   "code1",
			OriginalURL: "https://example.com",
			ClickCount:  3,
		}

		url, err := repo.GetByShortCode(context.TODO(), "code1")

		assert.NoError(t, err)
		assert.NotNil(t, url)
		assert.Equal(t, wantURL, *url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_Update(t *testing.T) {
	t.Run("url not found", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`UPDATE urls`).
			WithArgs("https://new-example.com", "code2").
			WillReturnError(sql.ErrNoRows)

		url, err := repo.Update(context.TODO(), "code2", "https://new-example.com")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		rows := sqlmock.NewRows(columns).
			AddRow(0, "code1", "https://new-example.com", false, 0, time.Time{}, time.Time{})

		mock.ExpectQuery(`UPDATE urls`).
			WithArgs("https://new-example.com", "code1").
			WillReturnRows(rows)

		wantURL := models.URL{
			ShortCode:   "code1",
			OriginalURL: "https://new-example.com",
		}

		url, err := repo.Update(context.TODO(), "code1", "https://new-example.com")

		assert.NoError(t, err)
		assert.NotNil(t, url)
		assert.Equal(t, wantURL, *url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_Delete(t *testing.T) {
	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectExec(`DELETE FROM urls`).
			WithArgs("code1").
			WillReturnError(errUnknown)

		err := repo.Delete(context.TODO(), "code1")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rows affected error", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectExec(`DELETE FROM urls`).
			WithArgs("code1").
			WillReturnResult(sqlmock.NewErrorResult(errAffectedRows))

		err := repo.Delete(context.TODO(), "code1")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errAffectedRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("url not found", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectExec(`DELETE FROM urls`).
			WithArgs("code2").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.TODO(), "code2")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectExec(`DELETE FROM urls`).
			WithArgs("code1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Delete(context.TODO(), "code1")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_IncrementClicks(t *testing.T) {
	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectExec(`UPDATE urls`).
			WithArgs("code1").
			WillReturnError(errUnknown)

		err := repo.IncrementClicks(context.TODO(), "code1")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("url not found", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectExec(`UPDATE urls`).
			WithArgs("code2").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.IncrementClicks(context.TODO(), "code2")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectExec(`UPDATE urls`).
			WithArgs("code1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.IncrementClicks(context.TODO(), "code1")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_List(t *testing.T) {
	params := models.ListParams{
		Page:      1,
		Limit:     10,
		SortBy:    models.SortByCreatedAt,
		SortOrder: models.OrderDesc,
	}

	t.Run("begin error", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectBegin().WillReturnError(errUnknown)

		urls, total, err := repo.List(context.TODO(), params)

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, urls)
		assert.Zero(t, total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count error", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT`).
			WillReturnError(errUnknown)
		mock.ExpectRollback()

		urls, total, err := repo.List(context.TODO(), params)

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, urls)
		assert.Zero(t, total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		rows := sqlmock.NewRows(columns).
			AddRow(2, "code2", "https://example.com/b", false, 0, time.Time{}, time.Time{}).
			AddRow(1, "code1", "https://example.com/a", false, 0, time.Time{}, time.Time{})

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM urls`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
		mock.ExpectQuery(`SELECT \* FROM urls ORDER BY created_at DESC, id DESC`).
			WithArgs(10, 0).
			WillReturnRows(rows)
		mock.ExpectCommit()

		urls, total, err := repo.List(context.TODO(), params)

		assert.NoError(t, err)
		assert.Len(t, urls, 2)
		assert.EqualValues(t, 12, total)
		assert.Equal(t, "code2", urls[0].ShortCode)
		assert.Equal(t, "code1", urls[1].ShortCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("search and custom only", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		filtered := models.ListParams{
			Page:       2,
			Limit:      5,
			Search:     "poli",
			SortBy:     models.SortByClickCount,
			SortOrder:  models.OrderAsc,
			CustomOnly: true,
		}

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM urls WHERE \(original_url ILIKE \$1 OR short_code ILIKE \$1\) AND is_custom`).
			WithArgs("%poli%").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))
		mock.ExpectQuery(`SELECT \* FROM urls WHERE \(original_url ILIKE \$1 OR short_code ILIKE \$1\) AND is_custom ORDER BY click_count ASC, id ASC`).
			WithArgs("%poli%", 5, 5).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(6, "poli6", "https://polinetwork.org/6", true, 9, time.Time{}, time.Time{}))
		mock.ExpectCommit()

		urls, total, err := repo.List(context.TODO(), filtered)

		assert.NoError(t, err)
		assert.Len(t, urls, 1)
		assert.EqualValues(t, 6, total)
		assert.True(t, urls[0].IsCustom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
