package intake

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kalambet/intake/internal/storage"
)

// RecentLimit is the number of records returned in Summary.Recent.
const RecentLimit = 5

// Summary is the aggregate view returned by Stats.
type Summary struct {
	Total       int              `json:"total"`
	Formal      int              `json:"formal"`
	Intern      int              `json:"intern"`
	Departments []string         `json:"departments"`
	Recent      []storage.Record `json:"recent"`
}

// List returns every record ordered by timestamp, newest first. Records
// with equal or unparseable timestamps keep their store order.
func (s *Service) List(ctx context.Context) ([]storage.Record, error) {
	records, err := s.records.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	sorted := make([]storage.Record, len(records))
	copy(sorted, records)
	sortNewestFirst(sorted)
	return sorted, nil
}

func sortNewestFirst(records []storage.Record) {
	keys := make([]time.Time, len(records))
	for i, r := range records {
		keys[i], _ = r.Time()
	}
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]].After(keys[idx[b]])
	})
	out := make([]storage.Record, len(records))
	for i, j := range idx {
		out[i] = records[j]
	}
	copy(records, out)
}

// Stats summarizes the collection. Recent holds the first RecentLimit
// records in store order.
func (s *Service) Stats(ctx context.Context) (Summary, error) {
	records, err := s.records.Load(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("loading records: %w", err)
	}
	return Summarize(records), nil
}

// Summarize computes a Summary from records in store order.
func Summarize(records []storage.Record) Summary {
	sum := Summary{
		Total:       len(records),
		Departments: []string{},
		Recent:      []storage.Record{},
	}
	seen := make(map[string]bool)
	for _, r := range records {
		switch {
		case IsFormal(r.Type):
			sum.Formal++
		case IsIntern(r.Type):
			sum.Intern++
		}
		if r.Department != "" && !seen[r.Department] {
			seen[r.Department] = true
			sum.Departments = append(sum.Departments, r.Department)
		}
	}
	n := min(len(records), RecentLimit)
	sum.Recent = append(sum.Recent, records[:n]...)
	return sum
}
