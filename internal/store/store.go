package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopscan/shopscan/pkg/models"
)

// ErrNotFound is returned when a lookup matches no stored product.
var ErrNotFound = errors.New("product not found")

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id            BIGSERIAL PRIMARY KEY,
	url           TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	price         DOUBLE PRECISION,
	description   TEXT NOT NULL DEFAULT '',
	rating        DOUBLE PRECISION,
	reviews_count INTEGER,
	availability  TEXT NOT NULL DEFAULT '',
	brand         TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL DEFAULT '',
	image_urls    TEXT[] NOT NULL DEFAULT '{}',
	scraped_at    TIMESTAMPTZ NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_brand ON products (brand);
CREATE INDEX IF NOT EXISTS idx_products_scraped_at ON products (scraped_at);
`

// Store persists scraped products in Postgres. Products are keyed by URL,
// so re-scraping a page updates the existing row in place.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database DSN: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const upsertQuery = `
		INSERT INTO products
			(url, name, price, description, rating, reviews_count,
			 availability, brand, category, image_urls, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (url) DO UPDATE SET
			name          = EXCLUDED.name,
			price         = EXCLUDED.price,
			description   = EXCLUDED.description,
			rating        = EXCLUDED.rating,
			reviews_count = EXCLUDED.reviews_count,
			availability  = EXCLUDED.availability,
			brand         = EXCLUDED.brand,
			category      = EXCLUDED.category,
			image_urls    = EXCLUDED.image_urls,
			scraped_at    = EXCLUDED.scraped_at,
			updated_at    = CURRENT_TIMESTAMP`

// UpsertProduct inserts p or, when its URL is already known, replaces the
// stored fields with the fresh scrape.
func (s *Store) UpsertProduct(ctx context.Context, p *models.Product) error {
	if _, err := s.pool.Exec(ctx, upsertQuery, upsertArgs(p)...); err != nil {
		return fmt.Errorf("upserting product %s: %w", p.URL, err)
	}
	return nil
}

// UpsertProducts stores a batch inside one transaction.
func (s *Store) UpsertProducts(ctx context.Context, products []*models.Product) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range products {
		if _, err := tx.Exec(ctx, upsertQuery, upsertArgs(p)...); err != nil {
			return fmt.Errorf("upserting product %s: %w", p.URL, err)
		}
	}
	return tx.Commit(ctx)
}

func upsertArgs(p *models.Product) []any {
	return []any{
		p.URL, p.Name, p.Price, p.Description, p.Rating, p.ReviewsCount,
		p.Availability, p.Brand, p.Category, p.ImageURLs, p.ScrapedAt,
	}
}

func (s *Store) GetByURL(ctx context.Context, url string) (*models.Product, error) {
	row := s.pool.QueryRow(ctx, selectColumns+` FROM products WHERE url = $1`, url)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// List returns the most recently scraped products.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		selectColumns+` FROM products ORDER BY scraped_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return collectProducts(rows)
}

// Search matches the term case-insensitively against name, brand and
// description.
func (s *Store) Search(ctx context.Context, term string, limit int) ([]*models.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + term + "%"
	rows, err := s.pool.Query(ctx,
		selectColumns+` FROM products
		 WHERE name ILIKE $1 OR brand ILIKE $1 OR description ILIKE $1
		 ORDER BY scraped_at DESC LIMIT $2`,
		pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	return collectProducts(rows)
}

// Stats summarizes the stored catalog.
type Stats struct {
	Products      int64      `json:"products"`
	Brands        int64      `json:"brands"`
	AveragePrice  *float64   `json:"average_price,omitempty"`
	AverageRating *float64   `json:"average_rating,omitempty"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty"`
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT brand) FILTER (WHERE brand <> ''),
		       AVG(price),
		       AVG(rating),
		       MAX(scraped_at)
		FROM products`).Scan(
		&st.Products, &st.Brands, &st.AveragePrice, &st.AverageRating, &st.LastScrapedAt)
	if err != nil {
		return nil, fmt.Errorf("computing stats: %w", err)
	}
	return &st, nil
}

const selectColumns = `
	SELECT url, name, price, description, rating, reviews_count,
	       availability, brand, category, image_urls, scraped_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.URL, &p.Name, &p.Price, &p.Description, &p.Rating, &p.ReviewsCount,
		&p.Availability, &p.Brand, &p.Category, &p.ImageURLs, &p.ScrapedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]*models.Product, error) {
	defer rows.Close()
	var out []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading products: %w", err)
	}
	return out, nil
}
