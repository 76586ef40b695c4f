package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/curdside/cheese-chat/internal/core/domain"
)

const catalogColumns = `
id, name, description, cheese_type, cheese_form, brand, location,
price_each, price_per_lb, lb_per_each, case_size, sku, upc, image_url, source_url`

// CatalogRepository answers exact attribute queries over the product table.
// It backs the structured side of retrieval; similarity search lives in the
// vector index.
type CatalogRepository struct {
	db        *sql.DB
	listLimit int
}

func NewCatalogRepository(db *sql.DB, listLimit int) *CatalogRepository {
	if listLimit <= 0 {
		listLimit = 20
	}
	return &CatalogRepository{db: db, listLimit: listLimit}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *CatalogRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS cheese_products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	cheese_type TEXT NOT NULL DEFAULT '',
	cheese_form TEXT NOT NULL DEFAULT '',
	brand TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	price_each DOUBLE PRECISION,
	price_per_lb DOUBLE PRECISION,
	lb_per_each DOUBLE PRECISION,
	case_size TEXT NOT NULL DEFAULT 'No',
	sku TEXT NOT NULL DEFAULT 'No',
	upc TEXT NOT NULL DEFAULT 'No',
	image_url TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_cheese_products_price_each ON cheese_products(price_each);
CREATE INDEX IF NOT EXISTS idx_cheese_products_search ON cheese_products
	USING GIN (to_tsvector('english', name || ' ' || description));
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *CatalogRepository) TopByPrice(ctx context.Context, order domain.PriceOrder, limit int) ([]domain.CatalogItem, error) {
	if limit <= 0 {
		limit = r.listLimit
	}
	direction := "DESC"
	if order == domain.PriceAscending {
		direction = "ASC"
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT %s
FROM cheese_products
WHERE price_each IS NOT NULL
ORDER BY price_each %s
LIMIT $1
`, catalogColumns, direction), limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "top by price", err)
	}
	return scanItems(rows, "top by price")
}

func (r *CatalogRepository) ByPriceRange(ctx context.Context, minPrice, maxPrice float64) ([]domain.CatalogItem, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT %s
FROM cheese_products
WHERE price_each IS NOT NULL AND price_each >= $1 AND price_each <= $2
ORDER BY price_each ASC
LIMIT $3
`, catalogColumns), minPrice, maxPrice, r.listLimit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "by price range", err)
	}
	return scanItems(rows, "by price range")
}

func (r *CatalogRepository) ByLocation(ctx context.Context, location string) ([]domain.CatalogItem, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT %s
FROM cheese_products
WHERE location ILIKE '%%' || $1 || '%%'
ORDER BY name ASC
LIMIT $2
`, catalogColumns), location, r.listLimit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "by location", err)
	}
	return scanItems(rows, "by location")
}

func (r *CatalogRepository) ByType(ctx context.Context, cheeseType string) ([]domain.CatalogItem, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT %s
FROM cheese_products
WHERE cheese_type ILIKE '%%' || $1 || '%%' OR name ILIKE '%%' || $1 || '%%'
ORDER BY name ASC
LIMIT $2
`, catalogColumns), cheeseType, r.listLimit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "by type", err)
	}
	return scanItems(rows, "by type")
}

// LexicalSearch is the last-resort text match used after an empty semantic
// pass. Rank comes from Postgres full-text search over name and description.
func (r *CatalogRepository) LexicalSearch(ctx context.Context, query string) ([]domain.CatalogItem, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT %s
FROM cheese_products
WHERE to_tsvector('english', name || ' ' || description) @@ plainto_tsquery('english', $1)
ORDER BY ts_rank(to_tsvector('english', name || ' ' || description), plainto_tsquery('english', $1)) DESC
LIMIT $2
`, catalogColumns), query, r.listLimit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "lexical search", err)
	}
	return scanItems(rows, "lexical search")
}

func scanItems(rows *sql.Rows, operation string) ([]domain.CatalogItem, error) {
	defer rows.Close()

	out := make([]domain.CatalogItem, 0)
	for rows.Next() {
		var item domain.CatalogItem
		var priceEach, pricePerLb, lbPerEach sql.NullFloat64
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Description, &item.CheeseType, &item.CheeseForm,
			&item.Brand, &item.Location, &priceEach, &pricePerLb, &lbPerEach,
			&item.CaseSize, &item.SKU, &item.UPC, &item.ImageURL, &item.SourceURL,
		); err != nil {
			return nil, domain.WrapError(domain.ErrBackendUnavailable, operation, fmt.Errorf("scan product: %w", err))
		}
		item.PriceEach = priceEach.Float64
		item.PricePerLb = pricePerLb.Float64
		item.LbPerEach = lbPerEach.Float64
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, operation, fmt.Errorf("iterate products: %w", err))
	}
	return out, nil
}
