package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
	_ "modernc.org/sqlite" // Local SQLite driver
)

const linkColumns = `short_code, original_url, owner, clicks, expires_at, created_at`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, domain.NewStorageError("open", err)
	}

	// A single local connection serializes writers and keeps
	// shared-cache in-memory databases alive.
	if driverName == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, domain.NewStorageError("ping", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, domain.NewStorageError("migrate", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		short_code TEXT NOT NULL UNIQUE,
		original_url TEXT NOT NULL,
		owner TEXT NOT NULL DEFAULT '',
		clicks INTEGER NOT NULL DEFAULT 0,
		expires_at DATETIME,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_links_owner_created_at ON links(owner, created_at);
	`
	_, err := db.Exec(query)
	return err
}

func (r *SQLiteRepository) Insert(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO links (short_code, original_url, owner, clicks, expires_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	var expiresAt sql.NullTime
	if link.Expiry != nil {
		expiresAt = sql.NullTime{Time: link.Expiry.UTC(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		link.ShortCode, link.OriginalURL, string(link.Owner), link.Clicks, expiresAt, link.CreatedAt.UTC(),
	)
	if isUniqueConstraint(err) {
		return domain.ErrCodeAlreadyExists
	}
	return domain.NewStorageError("insert", err)
}

func (r *SQLiteRepository) GetByShortCode(ctx context.Context, code string) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE short_code = ?`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get", err)
	}
	return link, nil
}

func (r *SQLiteRepository) List(ctx context.Context, owner domain.Owner) ([]domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links`
	args := []interface{}{}

	if owner != "" {
		query += " WHERE owner = ?"
		args = append(args, string(owner))
	}
	query += " ORDER BY created_at DESC, id DESC"

	links, err := r.query(ctx, query, args...)
	return links, domain.NewStorageError("list", err)
}

func (r *SQLiteRepository) DeleteOwned(ctx context.Context, code string, owner domain.Owner) error {
	query := `DELETE FROM links WHERE short_code = ?`
	args := []interface{}{code}

	if owner != "" {
		query += " AND owner = ?"
		args = append(args, string(owner))
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.NewStorageError("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewStorageError("delete", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) IncrementClicks(ctx context.Context, code string) (*domain.Link, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.NewStorageError("increment", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE links SET clicks = clicks + 1 WHERE short_code = ?`, code)
	if err != nil {
		return nil, domain.NewStorageError("increment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, domain.NewStorageError("increment", err)
	}
	if n == 0 {
		return nil, domain.ErrNotFound
	}

	link, err := scanLink(tx.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE short_code = ?`, code))
	if err != nil {
		return nil, domain.NewStorageError("increment", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.NewStorageError("increment", err)
	}
	return link, nil
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.Link, error) {
	links, err := r.query(ctx, `SELECT `+linkColumns+` FROM links ORDER BY id`)
	return links, domain.NewStorageError("dump", err)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Link, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []domain.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return links, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLink(row scanner) (*domain.Link, error) {
	var link domain.Link
	var owner string
	var expiresAt sql.NullTime

	if err := row.Scan(&link.ShortCode, &link.OriginalURL, &owner, &link.Clicks, &expiresAt, &link.CreatedAt); err != nil {
		return nil, err
	}

	link.Owner = domain.Owner(owner)
	if expiresAt.Valid {
		t := expiresAt.Time
		link.Expiry = &t
	}
	return &link, nil
}

func isUniqueConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Ensure interface compliance
var _ ports.LinkRepository = (*SQLiteRepository)(nil)
