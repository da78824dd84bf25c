package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Configuration for the postgres source
type PostgresConfig[TKey comparable, TValue any] struct {
	// Identifier used for logging and metric purposes, usually the table name
	Identifier string

	// Open connection pool, shared freely between loaders
	DB *sql.DB

	// Query executed once per batch. It receives the deduplicated key set as
	// an array in $1, e.g.
	//   SELECT id, name FROM exercises WHERE id = ANY($1)
	// Keys with no matching row simply return no row
	Query string

	// Optional listing query with no parameters, enables FetchAll
	QueryAll string

	// Scan reads one row into its key and entity
	Scan func(rows *sql.Rows) (TKey, TValue, error)
}

// Postgres is a source backed by a relational table, a whole batch becomes a
// single query over the key-set array
type Postgres[TKey comparable, TValue any] struct {
	config PostgresConfig[TKey, TValue]
}

// Create a new postgres-backed source
func NewPostgres[TKey comparable, TValue any](config PostgresConfig[TKey, TValue]) *Postgres[TKey, TValue] {
	return &Postgres[TKey, TValue]{config: config}
}

// Unique identifier for this source used for logging and metric purposes
func (s *Postgres[TKey, TValue]) Identifier() string { return s.config.Identifier }

// Fetch the rows whose key is in the given set with one query
func (s *Postgres[TKey, TValue]) FetchByKeys(ctx context.Context, keys []TKey) (map[TKey]TValue, error) {
	rows, err := s.config.DB.QueryContext(ctx, s.config.Query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("postgres query: %w", err)
	}
	defer rows.Close()

	result := make(map[TKey]TValue, len(keys))
	for rows.Next() {
		key, value, err := s.config.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres scan: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres rows: %w", err)
	}
	return result, nil
}

// Fetch every row of the listing query
func (s *Postgres[TKey, TValue]) FetchAll(ctx context.Context) ([]TValue, error) {
	if s.config.QueryAll == "" {
		return nil, errors.New("postgres source has no listing query configured")
	}

	rows, err := s.config.DB.QueryContext(ctx, s.config.QueryAll)
	if err != nil {
		return nil, fmt.Errorf("postgres query: %w", err)
	}
	defer rows.Close()

	result := make([]TValue, 0)
	for rows.Next() {
		_, value, err := s.config.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres scan: %w", err)
		}
		result = append(result, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres rows: %w", err)
	}
	return result, nil
}
