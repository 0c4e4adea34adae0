package postgres

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// errUniqViolation matches the PostgreSQL unique_violation code
// for drivers whose errors GORM does not translate.
//
// Cf., https://www.postgresql.org/docs/current/errcodes-appendix.html
var errUniqViolation = regexp.MustCompile(`SQLSTATE (23505)`)

type linkRow struct {
	ID          uint   `gorm:"primaryKey"`
	ShortCode   string `gorm:"uniqueIndex;not null"`
	OriginalURL string `gorm:"not null"`
	Owner       string `gorm:"index:idx_links_owner_created_at;not null;default:''"`
	Clicks      int64  `gorm:"not null;default:0"`
	ExpiresAt   *time.Time
	CreatedAt   time.Time `gorm:"index:idx_links_owner_created_at"`
}

func (linkRow) TableName() string { return "links" }

func (row linkRow) link() domain.Link {
	return domain.Link{
		ShortCode:   row.ShortCode,
		OriginalURL: row.OriginalURL,
		Owner:       domain.Owner(row.Owner),
		Clicks:      row.Clicks,
		Expiry:      row.ExpiresAt,
		CreatedAt:   row.CreatedAt,
	}
}

type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository connects through GORM and migrates the links table.
// GORM's own logging goes to l at WARN.
func NewPostgresRepository(dsn string, l *slog.Logger) (*PostgresRepository, error) {
	// https://gorm.io/docs/logger.html
	c := logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.New(slog.NewLogLogger(l.Handler(), slog.LevelWarn), c),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().Truncate(time.Microsecond)
		},
	})
	if err != nil {
		return nil, domain.NewStorageError("open", err)
	}

	if err := db.AutoMigrate(&linkRow{}); err != nil {
		return nil, domain.NewStorageError("migrate", err)
	}

	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, link *domain.Link) error {
	row := linkRow{
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		Owner:       string(link.Owner),
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt.UTC().Truncate(time.Microsecond),
	}
	if link.Expiry != nil {
		e := link.Expiry.UTC().Truncate(time.Microsecond)
		row.ExpiresAt = &e
	}

	err := r.db.WithContext(ctx).Create(&row).Error
	if isUniqViolation(err) {
		return domain.ErrCodeAlreadyExists
	}
	return domain.NewStorageError("insert", err)
}

func (r *PostgresRepository) GetByShortCode(ctx context.Context, code string) (*domain.Link, error) {
	var row linkRow
	err := r.db.WithContext(ctx).Where("short_code = ?", code).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get", err)
	}

	l := row.link()
	return &l, nil
}

func (r *PostgresRepository) List(ctx context.Context, owner domain.Owner) ([]domain.Link, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if owner != "" {
		q = q.Where("owner = ?", string(owner))
	}

	var rows []linkRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, domain.NewStorageError("list", err)
	}
	return toLinks(rows), nil
}

func (r *PostgresRepository) DeleteOwned(ctx context.Context, code string, owner domain.Owner) error {
	q := r.db.WithContext(ctx).Where("short_code = ?", code)
	if owner != "" {
		q = q.Where("owner = ?", string(owner))
	}

	res := q.Delete(&linkRow{})
	if res.Error != nil {
		return domain.NewStorageError("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) IncrementClicks(ctx context.Context, code string) (*domain.Link, error) {
	var row linkRow
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&linkRow{}).
			Where("short_code = ?", code).
			UpdateColumn("clicks", gorm.Expr("clicks + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return tx.Where("short_code = ?", code).First(&row).Error
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, domain.NewStorageError("increment", err)
	}

	l := row.link()
	return &l, nil
}

func (r *PostgresRepository) Dump(ctx context.Context) ([]domain.Link, error) {
	var rows []linkRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, domain.NewStorageError("dump", err)
	}
	return toLinks(rows), nil
}

func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// wipe empties the links table; tests only.
func (r *PostgresRepository) wipe() error {
	return r.db.Exec("TRUNCATE links RESTART IDENTITY").Error
}

func toLinks(rows []linkRow) []domain.Link {
	links := make([]domain.Link, 0, len(rows))
	for _, row := range rows {
		links = append(links, row.link())
	}
	return links
}

func isUniqViolation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || errUniqViolation.MatchString(err.Error())
}

// Ensure interface compliance
var _ ports.LinkRepository = (*PostgresRepository)(nil)
