package points

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines persistence for points.
// This abstraction allows the registry to be tested without a database.
type Repository interface {
	// Get retrieves a point by address.
	// Returns ErrPointNotFound if the point does not exist.
	Get(ctx context.Context, address string) (*Point, error)

	// List retrieves all points ordered by address.
	List(ctx context.Context) ([]Point, error)

	// Ensure inserts the definition if no point exists at its address.
	// Returns true if a row was created.
	Ensure(ctx context.Context, def Definition) (bool, error)

	// UpdateValue stores a point's value and ack flag.
	// Returns ErrPointNotFound if the point does not exist.
	UpdateValue(ctx context.Context, address string, value any, ack bool, at time.Time) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `address, name, type, role, readable, writable, value, ack, updated_at`

// Get retrieves a point by address.
func (r *SQLiteRepository) Get(ctx context.Context, address string) (*Point, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM points WHERE address = ?`, address)

	p, err := scanPoint(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPointNotFound
		}
		return nil, fmt.Errorf("querying point %s: %w", address, err)
	}
	return p, nil
}

// List retrieves all points ordered by address.
func (r *SQLiteRepository) List(ctx context.Context) ([]Point, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM points ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}
	defer rows.Close()

	var result []Point
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning point: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating points: %w", err)
	}
	return result, nil
}

// Ensure inserts the definition unless the address already exists.
// An existing row is left untouched, metadata included.
func (r *SQLiteRepository) Ensure(ctx context.Context, def Definition) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO points (address, name, type, role, readable, writable, value, ack, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL, 1, NULL)`,
		def.Address, def.Name, string(def.Type), def.Role, def.Readable, def.Writable,
	)
	if err != nil {
		return false, fmt.Errorf("ensuring point %s: %w", def.Address, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensuring point %s: %w", def.Address, err)
	}
	return n > 0, nil
}

// UpdateValue stores a point's value and ack flag.
func (r *SQLiteRepository) UpdateValue(ctx context.Context, address string, value any, ack bool, at time.Time) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value for %s: %w", address, err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE points SET value = ?, ack = ?, updated_at = ? WHERE address = ?`,
		string(encoded), ack, at.UTC().Format(time.RFC3339Nano), address,
	)
	if err != nil {
		return fmt.Errorf("updating point %s: %w", address, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating point %s: %w", address, err)
	}
	if n == 0 {
		return ErrPointNotFound
	}
	return nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPoint(s scanner) (*Point, error) {
	var (
		p         Point
		typ       string
		value     sql.NullString
		updatedAt sql.NullString
	)

	if err := s.Scan(&p.Address, &p.Name, &typ, &p.Role, &p.Readable, &p.Writable,
		&value, &p.Ack, &updatedAt); err != nil {
		return nil, err
	}
	p.Type = Type(typ)

	if value.Valid && value.String != "" {
		var v any
		if err := json.Unmarshal([]byte(value.String), &v); err != nil {
			return nil, fmt.Errorf("decoding value of %s: %w", p.Address, err)
		}
		p.Value = v
	}

	if updatedAt.Valid && updatedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, updatedAt.String)
		if err == nil {
			p.UpdatedAt = &t
		}
	}

	return &p, nil
}
