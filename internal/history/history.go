// Package history persists calculation requests and results in PostgreSQL.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
)

//go:embed schema.sql
var schemaSQL embed.FS

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Record is one stored calculation.
type Record struct {
	ID        uuid.UUID       `json:"id"`
	Kind      string          `json:"kind"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output"`
	CreatedAt time.Time       `json:"created_at"`
}

// Recorder is what the HTTP layer depends on.
type Recorder interface {
	Record(ctx context.Context, kind string, input, output any) error
	List(ctx context.Context, kind string, limit int) ([]Record, error)
}

// Connect opens a pooled connection and checks it is reachable.
func Connect(dsn string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

type Store struct {
	db    *sql.DB
	now   func() time.Time
	newID func() uuid.UUID
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now, newID: uuid.New}
}

// InitSchema creates the history table if it does not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	schema, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, kind string, input, output any) error {
	in, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to encode history input: %w", err)
	}
	out, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("failed to encode history output: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO calculation_history (id, kind, input, output, created_at) VALUES ($1, $2, $3, $4, $5)`,
		s.newID(), kind, in, out, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	return nil
}

// List returns the newest records first. An empty kind matches every kind;
// limit is clamped to [1, MaxListLimit] with DefaultListLimit for zero.
func (s *Store) List(ctx context.Context, kind string, limit int) ([]Record, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, input, output, created_at FROM calculation_history
		 WHERE ($1 = '' OR kind = $1) ORDER BY created_at DESC LIMIT $2`,
		kind, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			r       Record
			in, out []byte
		)
		if err := rows.Scan(&r.ID, &r.Kind, &in, &out, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		r.Input = in
		r.Output = out
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return records, nil
}
