package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store with the same semantics as the Postgres
// implementation. It backs the unit tests and doubles as the reference for
// the contract: both implementations must agree on merge updates, inclusive
// date bounds and not-found behavior.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte // collection -> id -> raw document
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]byte)}
}

func (s *Memory) Create(ctx context.Context, collection, id string, data any) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	raw, err := withID(data, id)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.data[collection]
	if coll == nil {
		coll = make(map[string][]byte)
		s.data[collection] = coll
	}
	if _, exists := coll[id]; exists {
		return "", fmt.Errorf("create %s/%s: duplicate id", collection, id)
	}
	coll[id] = raw
	return id, nil
}

func (s *Memory) Read(ctx context.Context, collection, id string, out any) error {
	s.mu.RLock()
	raw, ok := s.data[collection][id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, out)
}

func (s *Memory) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	// Round-trip the patch through JSON so stored values match what the
	// JSONB implementation would hold.
	rawPatch, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}
	var norm map[string]any
	if err := json.Unmarshal(rawPatch, &norm); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for k, v := range norm {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.data[collection][id] = merged
	return nil
}

func (s *Memory) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[collection], id)
	return nil
}

func (s *Memory) FindByField(ctx context.Context, collection, field string, value any, out any) error {
	want, err := normalize(value)
	if err != nil {
		return err
	}
	docs, err := s.filter(collection, func(doc map[string]any) (bool, error) {
		return reflect.DeepEqual(doc[field], want), nil
	}, "")
	if err != nil {
		return err
	}
	return decodeList(docs, out)
}

func (s *Memory) FindByDateRange(ctx context.Context, collection, ownerField, ownerID, dateField string, from time.Time, to *time.Time, out any) error {
	docs, err := s.filter(collection, func(doc map[string]any) (bool, error) {
		if doc[ownerField] != ownerID {
			return false, nil
		}
		ts, err := docTime(doc, dateField)
		if err != nil {
			return false, err
		}
		if ts.Before(from) {
			return false, nil
		}
		if to != nil && ts.After(*to) {
			return false, nil
		}
		return true, nil
	}, dateField)
	if err != nil {
		return err
	}
	return decodeList(docs, out)
}

func (s *Memory) FindMostRecent(ctx context.Context, collection, ownerField, ownerID string, out any) (bool, error) {
	docs, err := s.filter(collection, func(doc map[string]any) (bool, error) {
		return doc[ownerField] == ownerID, nil
	}, "createdAt")
	if err != nil {
		return false, err
	}
	if len(docs) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(docs[len(docs)-1], out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Memory) List(ctx context.Context, collection string, out any) error {
	docs, err := s.filter(collection, func(map[string]any) (bool, error) { return true, nil }, "createdAt")
	if err != nil {
		return err
	}
	return decodeList(docs, out)
}

func (s *Memory) Ref(collection, id string) Ref {
	return Ref{Collection: collection, ID: id}
}

// filter returns matching raw documents, sorted ascending by sortField when
// one is given.
func (s *Memory) filter(collection string, match func(map[string]any) (bool, error), sortField string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		raw []byte
		ts  time.Time
	}
	var hits []hit
	for _, raw := range s.data[collection] {
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		ok, err := match(doc)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		h := hit{raw: raw}
		if sortField != "" {
			if ts, err := docTime(doc, sortField); err == nil {
				h.ts = ts
			}
		}
		hits = append(hits, h)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].ts.Before(hits[j].ts) })

	out := make([][]byte, len(hits))
	for i, h := range hits {
		out[i] = h.raw
	}
	return out, nil
}

func docTime(doc map[string]any, field string) (time.Time, error) {
	str, ok := doc[field].(string)
	if !ok {
		return time.Time{}, fmt.Errorf("field %q is not a timestamp", field)
	}
	return time.Parse(time.RFC3339Nano, str)
}

// normalize maps a Go value to its JSON-decoded shape so comparisons against
// stored documents hold (ints become float64, etc.).
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ Store = (*Memory)(nil)
