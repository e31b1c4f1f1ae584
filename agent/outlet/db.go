package outlet

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Driver  string `split_words:"true" default:"sqlite"`
	DSN     string `envconfig:"DSN" default:"file:outlets.db?_busy_timeout=5000"`
	MaxRows int    `split_words:"true" default:"10"`
	Seed    bool   `split_words:"true" default:"true"`
}

// Open returns the outlet store selected by cfg.Driver. Relational drivers are
// migrated and, when cfg.Seed is set, seeded with SeedRecords if empty.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case DriverMemory:
		return NewMemoryStore(SeedRecords(), cfg.MaxRows), nil
	case DriverSQLite, DriverPostgres, "":
		return OpenDB(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported outlet db driver %q", cfg.Driver)
	}
}

// DBStore reads outlets from a relational table through bun.
type DBStore struct {
	db      *bun.DB
	maxRows int
}

var _ Store = (*DBStore)(nil)

func OpenDB(ctx context.Context, cfg Config) (*DBStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("outlet db dsn is required")
	}

	var (
		db      *bun.DB
		dialect goose.Dialect
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
		db = bun.NewDB(sqldb, pgdialect.New())
		dialect = goose.DialectPostgres
	case DriverSQLite, "":
		sqldb, err := sql.Open("sqlite3", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
		dialect = goose.DialectSQLite3
	default:
		return nil, fmt.Errorf("unsupported outlet db driver %q", cfg.Driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping outlet db: %w", err)
	}
	if err := migrate(ctx, db.DB, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &DBStore{db: db, maxRows: cfg.MaxRows}
	if cfg.Seed {
		if err := s.Seed(ctx, SeedRecords()); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func migrate(ctx context.Context, sqldb *sql.DB, dialect goose.Dialect) error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	provider, err := goose.NewProvider(dialect, sqldb, fsys)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	for _, r := range results {
		log.Info().
			Int64("version", r.Source.Version).
			Dur("duration", r.Duration).
			Msg("outlet migration applied")
	}
	return nil
}

// Seed inserts records when the outlets table is empty.
func (s *DBStore) Seed(ctx context.Context, records []Record) error {
	count, err := s.db.NewSelect().Model((*outletRow)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("count outlets: %w", err)
	}
	if count > 0 || len(records) == 0 {
		return nil
	}

	rows := make([]outletRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, rowFromRecord(r))
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("seed outlets: %w", err)
	}
	log.Info().Int("rows", len(rows)).Msg("outlets table seeded")
	return nil
}

func (s *DBStore) Query(ctx context.Context, f Filter) ([]Record, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var rows []outletRow
	q := s.db.NewSelect().Model(&rows).OrderExpr("id ASC")
	if where := f.SQL(); where != "" {
		q = q.Where(where, f.Args()...)
	}
	if s.maxRows > 0 {
		q = q.Limit(s.maxRows)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("query outlets: %w", err)
	}

	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	log.Debug().Stringer("filter", f).Int("rows", len(out)).Msg("outlet query")
	return out, nil
}

func (s *DBStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *DBStore) Close() error {
	return s.db.Close()
}
