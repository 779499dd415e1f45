// Package docstore provides the document persistence layer: a small
// collection/document contract plus a Postgres JSONB implementation and an
// in-memory implementation used by tests.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Read and Update when no document exists for the
// given collection and id.
var ErrNotFound = errors.New("document not found")

// Store is the persistence contract the services are written against.
// Update merges fields into the stored document, it never replaces it.
// FindByDateRange treats both bounds as inclusive; a nil upper bound means
// unbounded. All list queries scoped to an owner take the owner field name
// and value explicitly.
type Store interface {
	// Create inserts data under the given id, generating one when id is
	// empty. The effective id is written into the document's "id" field and
	// returned.
	Create(ctx context.Context, collection, id string, data any) (string, error)
	Read(ctx context.Context, collection, id string, out any) error
	Update(ctx context.Context, collection, id string, patch map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	FindByField(ctx context.Context, collection, field string, value any, out any) error
	FindByDateRange(ctx context.Context, collection, ownerField, ownerID, dateField string, from time.Time, to *time.Time, out any) error
	// FindMostRecent returns the owner's newest document by createdAt.
	// The boolean reports whether any document existed.
	FindMostRecent(ctx context.Context, collection, ownerField, ownerID string, out any) (bool, error)
	List(ctx context.Context, collection string, out any) error
	Ref(collection, id string) Ref
}

// Ref is a lazy pointer to a document; it carries no data and performs no
// reads.
type Ref struct {
	Collection string
	ID         string
}

func (r Ref) Path() string {
	return r.Collection + "/" + r.ID
}

// withID round-trips data through JSON, stamping the id field.
func withID(data any, id string) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("document is not an object: %w", err)
	}
	m["id"] = id
	return json.Marshal(m)
}

// decodeList joins raw documents into a JSON array and unmarshals it into
// out, which must be a pointer to a slice.
func decodeList(docs [][]byte, out any) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, d := range docs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(d)
	}
	buf.WriteByte(']')
	return json.Unmarshal(buf.Bytes(), out)
}
