package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Postgres stores every collection in a single documents table keyed by
// (collection, id), with the document body in a JSONB column. Field queries
// use JSONB containment so the GIN index applies.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Create has no uniqueness beyond (collection, id): two devices racing the
// same day-placeholder insert will both succeed. The documents table could
// carry a partial unique index on the day bucket if exactly-once is ever
// needed.
func (s *Postgres) Create(ctx context.Context, collection, id string, data any) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	raw, err := withID(data, id)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`,
		collection, id, raw)
	if err != nil {
		return "", fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	return id, nil
}

func (s *Postgres) Read(ctx context.Context, collection, id string, out any) error {
	var raw []byte
	err := s.db.QueryRowxContext(ctx,
		`SELECT data FROM documents WHERE collection=$1 AND id=$2`,
		collection, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read %s/%s: %w", collection, id, err)
	}
	return json.Unmarshal(raw, out)
}

func (s *Postgres) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET data = data || $3 WHERE collection=$1 AND id=$2`,
		collection, id, raw)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection=$1 AND id=$2`,
		collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Postgres) FindByField(ctx context.Context, collection, field string, value any, out any) error {
	match, err := json.Marshal(map[string]any{field: value})
	if err != nil {
		return fmt.Errorf("marshal filter: %w", err)
	}
	rows, err := s.db.QueryxContext(ctx,
		`SELECT data FROM documents WHERE collection=$1 AND data @> $2`,
		collection, match)
	if err != nil {
		return fmt.Errorf("find %s by %s: %w", collection, field, err)
	}
	defer rows.Close()
	return collectRows(rows, out)
}

func (s *Postgres) FindByDateRange(ctx context.Context, collection, ownerField, ownerID, dateField string, from time.Time, to *time.Time, out any) error {
	match, err := json.Marshal(map[string]any{ownerField: ownerID})
	if err != nil {
		return fmt.Errorf("marshal filter: %w", err)
	}
	query := `SELECT data FROM documents
	          WHERE collection=$1 AND data @> $2 AND (data->>$3)::timestamptz >= $4`
	args := []any{collection, match, dateField, from}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND (data->>$3)::timestamptz <= $%d", len(args))
	}
	query += ` ORDER BY (data->>$3)::timestamptz`
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("find %s by %s range: %w", collection, dateField, err)
	}
	defer rows.Close()
	return collectRows(rows, out)
}

func (s *Postgres) FindMostRecent(ctx context.Context, collection, ownerField, ownerID string, out any) (bool, error) {
	match, err := json.Marshal(map[string]any{ownerField: ownerID})
	if err != nil {
		return false, fmt.Errorf("marshal filter: %w", err)
	}
	var raw []byte
	err = s.db.QueryRowxContext(ctx,
		`SELECT data FROM documents
		 WHERE collection=$1 AND data @> $2
		 ORDER BY (data->>'createdAt')::timestamptz DESC LIMIT 1`,
		collection, match).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find most recent in %s: %w", collection, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Postgres) List(ctx context.Context, collection string, out any) error {
	// Ordered by the document's own timestamp, not insert time: backfilled
	// records are stamped in the past and must sort where they belong.
	rows, err := s.db.QueryxContext(ctx,
		`SELECT data FROM documents WHERE collection=$1
		 ORDER BY (data->>'createdAt')::timestamptz ASC NULLS FIRST`,
		collection)
	if err != nil {
		return fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()
	return collectRows(rows, out)
}

func (s *Postgres) Ref(collection, id string) Ref {
	return Ref{Collection: collection, ID: id}
}

func collectRows(rows *sqlx.Rows, out any) error {
	var docs [][]byte
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		docs = append(docs, raw)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return decodeList(docs, out)
}

var _ Store = (*Postgres)(nil)
