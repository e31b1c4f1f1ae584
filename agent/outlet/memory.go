package outlet

import (
	"context"
	"slices"
	"strings"
)

// MemoryStore serves outlets from a fixed in-process list.
type MemoryStore struct {
	records []Record
	maxRows int
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(records []Record, maxRows int) *MemoryStore {
	return &MemoryStore{records: slices.Clone(records), maxRows: maxRows}
}

func (s *MemoryStore) Query(_ context.Context, f Filter) ([]Record, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	c := f.Criteria()
	var out []Record
	for _, r := range s.records {
		if !matches(r, c) {
			continue
		}
		out = append(out, r)
		if s.maxRows > 0 && len(out) == s.maxRows {
			break
		}
	}
	return out, nil
}

func matches(r Record, c Criteria) bool {
	if c.Location != "" && !strings.EqualFold(r.Location, c.Location) {
		return false
	}
	if c.OutletName != "" && !strings.EqualFold(r.Name, c.OutletName) {
		return false
	}
	for _, svc := range c.Services {
		if !slices.Contains(r.Services, svc) {
			return false
		}
	}
	return true
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
