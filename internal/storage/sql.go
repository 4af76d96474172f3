package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"souqsearch/internal/config"
)

// SQLWriter persists listings into a relational database via database/sql.
type SQLWriter struct {
	db          *sql.DB
	autoMigrate bool
}

// NewSQLWriter initialises a SQLWriter from configuration.
func NewSQLWriter(cfg config.SQLConfig) (*SQLWriter, error) {
	if cfg.Driver == "" || cfg.DSN == "" {
		return nil, errors.New("sql config missing driver or dsn")
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sql connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if cfg.CreateIfMissing && shouldAttemptCreateDatabase(cfg.Driver, err) {
			_ = db.Close()
			if err := createDatabase(ctx, cfg); err != nil {
				return nil, err
			}
			db, err = sql.Open(cfg.Driver, cfg.DSN)
			if err != nil {
				return nil, fmt.Errorf("open sql connection: %w", err)
			}
			if err := db.PingContext(ctx); err != nil {
				return nil, fmt.Errorf("ping sql connection: %w", err)
			}
		} else {
			return nil, fmt.Errorf("ping sql connection: %w", err)
		}
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime.Duration > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Duration)
	}
	writer := &SQLWriter{
		db:          db,
		autoMigrate: cfg.AutoMigrate,
	}
	if cfg.AutoMigrate {
		if err := writer.ensureSchema(context.Background()); err != nil {
			return nil, err
		}
	}
	return writer, nil
}

// SaveListings upserts the batch keyed on product link. Listings without a
// link are inserted as-is; there is nothing to conflict on.
func (s *SQLWriter) SaveListings(ctx context.Context, listings []Record) error {
	if s == nil || s.db == nil || len(listings) == 0 {
		return nil
	}
	if err := s.upsertListings(ctx, listings); err != nil {
		if s.autoMigrate && isUndefinedTableErr(err) {
			if schemaErr := s.ensureSchema(ctx); schemaErr != nil {
				return fmt.Errorf("ensure schema: %w", schemaErr)
			}
			if retryErr := s.upsertListings(ctx, listings); retryErr != nil {
				return fmt.Errorf("insert listings: %w", retryErr)
			}
			return nil
		}
		return fmt.Errorf("insert listings: %w", err)
	}
	return nil
}

func (s *SQLWriter) upsertListings(ctx context.Context, listings []Record) error {
	const withLink = `
        INSERT INTO listings (title, price, rating, image, product_link, description, search_query, website, collected_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
        ON CONFLICT (product_link) DO UPDATE SET
            title = EXCLUDED.title,
            price = EXCLUDED.price,
            rating = EXCLUDED.rating,
            image = EXCLUDED.image,
            description = EXCLUDED.description,
            search_query = EXCLUDED.search_query,
            website = EXCLUDED.website,
            collected_at = EXCLUDED.collected_at
    `
	const withoutLink = `
        INSERT INTO listings (title, price, rating, image, product_link, description, search_query, website, collected_at)
        VALUES ($1,$2,$3,$4,NULL,$5,$6,$7,NOW())
    `
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, rec := range listings {
		if rec.ProductLink != "" {
			_, err = tx.ExecContext(ctx, withLink,
				rec.Title, rec.Price, rec.Rating, rec.ImageURL,
				rec.ProductLink, rec.Description, rec.SearchQuery, rec.Website)
		} else {
			_, err = tx.ExecContext(ctx, withoutLink,
				rec.Title, rec.Price, rec.Rating, rec.ImageURL,
				rec.Description, rec.SearchQuery, rec.Website)
		}
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Close closes the underlying DB connection.
func (s *SQLWriter) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func shouldAttemptCreateDatabase(driver string, err error) bool {
	if !strings.EqualFold(driver, "postgres") {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "3D000"
	}
	return strings.Contains(strings.ToLower(err.Error()), "does not exist")
}

func createDatabase(ctx context.Context, cfg config.SQLConfig) error {
	parsed, err := url.Parse(cfg.DSN)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}
	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return errors.New("dsn missing database name")
	}
	if strings.EqualFold(dbName, "postgres") {
		return fmt.Errorf("target database %q cannot be auto-created", dbName)
	}
	parsed.Path = "/postgres"
	adminDSN := parsed.String()
	adminDB, err := sql.Open(cfg.Driver, adminDSN)
	if err != nil {
		return fmt.Errorf("connect admin database: %w", err)
	}
	defer adminDB.Close()
	if err := adminDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping admin database: %w", err)
	}
	stmt := fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))
	if _, err := adminDB.ExecContext(ctx, stmt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P04" {
			return nil
		}
		return fmt.Errorf("create database %q: %w", dbName, err)
	}
	return nil
}

func (s *SQLWriter) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil || !s.autoMigrate {
		return nil
	}
	schemaCtx := ctx
	if schemaCtx == nil || schemaCtx.Err() != nil {
		schemaCtx = context.Background()
	}
	schemaCtx, cancel := context.WithTimeout(schemaCtx, 10*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS listings (
		    id BIGSERIAL PRIMARY KEY,
		    title TEXT NOT NULL,
		    price NUMERIC(12,2),
		    rating NUMERIC(3,1),
		    image TEXT,
		    product_link TEXT UNIQUE,
		    description TEXT,
		    search_query TEXT,
		    website TEXT,
		    collected_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_search_query ON listings (search_query)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_collected_at ON listings (collected_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(schemaCtx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func isUndefinedTableErr(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist")
}
