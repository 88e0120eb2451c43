package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/polinetwork/url-shortener/internal/database"
	"github.com/polinetwork/url-shortener/internal/models"
)

type urlRecord struct {
	ID          int64     `db:"id"`
	ShortCode   string    `db:"short_code"`
	OriginalURL string    `db:"original_url"`
	IsCustom    bool      `db:"is_custom"`
	ClickCount  int64     `db:"click_count"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	return &models.URL{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		IsCustom:    r.IsCustom,
		ClickCount:  r.ClickCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// sortColumns whitelists the columns a list query may be ordered by.
var sortColumns = map[string]string{
	models.SortByCreatedAt:  "created_at",
	models.SortByUpdatedAt:  "updated_at",
	models.SortByClickCount: "click_count",
	models.SortByShortCode:  "short_code",
}

// URLRepository persists URL records in the urls table. All operations are
// atomic with respect to a single record and safe for concurrent use.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

// Create inserts a new record. The unique constraint on short_code is the
// authoritative duplicate check; a violation is reported as ErrShortCodeExists.
func (r *URLRepository) Create(ctx context.Context, shortCode, originalURL string, isCustom bool) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, original_url, is_custom)
		VALUES ($1, $2, $3)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode, originalURL, isCustom)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// GetByShortCode returns the record for the given short code without touching
// its click count.
func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByShortCode"

	rec := new(urlRecord)
	query := `SELECT * FROM urls WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// Update replaces original_url and refreshes updated_at. Short code, creation
// time and click count are untouched.
func (r *URLRepository) Update(ctx context.Context, shortCode, originalURL string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Update"

	rec := new(urlRecord)
	query := `UPDATE urls
		SET original_url = $1, updated_at = now()
		WHERE short_code = $2
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, originalURL, shortCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// Delete removes the record. Deleting a short code that doesn't exist is
// reported as ErrURLNotFound.
func (r *URLRepository) Delete(ctx context.Context, shortCode string) error {
	const op = "database.postgres.URLRepository.Delete"

	query := `DELETE FROM urls WHERE short_code = $1`

	res, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to delete url record: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return nil
}

// IncrementClicks adds exactly one click to the record in a single atomic
// statement. No prior read is involved, so concurrent increments never lose
// updates.
func (r *URLRepository) IncrementClicks(ctx context.Context, shortCode string) error {
	const op = "database.postgres.URLRepository.IncrementClicks"

	query := `UPDATE urls
		SET click_count = click_count + 1
		WHERE short_code = $1`

	res, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to increment click count: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return nil
}

// List returns one page of records matching the filters together with the
// total match count. Both the count and the page are read inside a single
// REPEATABLE READ transaction so they observe the same snapshot even under
// concurrent writes.
//
// Equal sort-key values are tie-broken by id in the same direction, keeping
// pagination deterministic.
func (r *URLRepository) List(ctx context.Context, params models.ListParams) ([]models.URL, int64, error) {
	const op = "database.postgres.URLRepository.List"

	column, ok := sortColumns[params.SortBy]
	if !ok {
		column = "created_at"
	}

	direction := "DESC"
	if params.SortOrder == models.OrderAsc {
		direction = "ASC"
	}

	var conds []string
	var args []any

	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		conds = append(conds, fmt.Sprintf("(original_url ILIKE $%d OR short_code ILIKE $%d)", len(args), len(args)))
	}
	if params.CustomOnly {
		conds = append(conds, "is_custom")
	}

	var whereClause string
	if len(conds) > 0 {
		whereClause = "WHERE " + strings.Join(conds, " AND ")
	}

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM urls %s`, whereClause)

	if err := tx.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("%s: failed to count url records: %w", op, err)
	}

	dataQuery := fmt.Sprintf(`SELECT * FROM urls %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		whereClause, column, direction, direction, len(args)+1, len(args)+2)
	args = append(args, params.Limit, (params.Page-1)*params.Limit)

	var recs []urlRecord
	if err := tx.SelectContext(ctx, &recs, dataQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("%s: failed to list url records: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	urls := make([]models.URL, len(recs))
	for i := range recs {
		urls[i] = *recs[i].ToURL()
	}

	return urls, total, nil
}
