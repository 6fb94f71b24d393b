// Package storage archives generated campaigns in SQLite.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jwebster45206/dungeon-master/pkg/campaign"
)

// Record kinds.
const (
	KindCampaign = "campaign"
	KindPlot     = "plot"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("campaign not found")

// Store manages the SQLite database connection for the campaign archive.
type Store struct {
	db *sql.DB
}

// Record is one archived generation result.
type Record struct {
	ID        uuid.UUID
	Kind      string
	Details   string
	Players   string
	Body      json.RawMessage
	CreatedAt time.Time
}

// Campaign decodes a campaign record.
func (r *Record) Campaign() (*campaign.Campaign, error) {
	if r.Kind != KindCampaign {
		return nil, fmt.Errorf("record %s is a %s", r.ID, r.Kind)
	}
	return campaign.ParseCampaign(r.Body)
}

// Plot decodes a plot record.
func (r *Record) Plot() (*campaign.Plot, error) {
	if r.Kind != KindPlot {
		return nil, fmt.Errorf("record %s is a %s", r.ID, r.Kind)
	}
	return campaign.ParsePlot(r.Body)
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS campaigns (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			details TEXT NOT NULL,
			players TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_campaigns_kind ON campaigns(kind);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveCampaign archives a one-shot campaign outline.
func (s *Store) SaveCampaign(ctx context.Context, details string, c *campaign.Campaign) (uuid.UUID, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: cannot encode campaign: %w", err)
	}
	return s.insert(ctx, KindCampaign, details, "", body)
}

// SavePlot archives a three-act plot.
func (s *Store) SavePlot(ctx context.Context, details, players string, p *campaign.Plot) (uuid.UUID, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: cannot encode plot: %w", err)
	}
	return s.insert(ctx, KindPlot, details, players, body)
}

func (s *Store) insert(ctx context.Context, kind, details, players string, body []byte) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO campaigns (id, kind, details, players, body, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id.String(), kind, details, players, string(body), time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: cannot save %s: %w", kind, err)
	}
	return id, nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, kind, details, players, body, created_at FROM campaigns WHERE id = ?",
		id.String(),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot read campaign: %w", err)
	}
	return rec, nil
}

// List returns the most recent records, newest first. A limit of zero or
// less returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := "SELECT id, kind, details, players, body, created_at FROM campaigns ORDER BY seq DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot list campaigns: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan campaign: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var (
		rec     Record
		id      string
		body    string
		created int64
	)
	if err := sc.Scan(&id, &rec.Kind, &rec.Details, &rec.Players, &body, &created); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("bad id %q: %w", id, err)
	}
	rec.ID = parsed
	rec.Body = json.RawMessage(body)
	rec.CreatedAt = time.Unix(0, created).UTC()
	return &rec, nil
}
