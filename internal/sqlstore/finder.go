package sqlstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/stagehand/internal/discovery"
	"github.com/roach88/stagehand/internal/record"
)

// FindExisting runs one batched existence query for the record type:
// all watched fields combined into a single disjunctive condition,
//
//	SELECT id, f1, f2 FROM t WHERE f1 IN (?, ...) OR f2 IN (?, ...)
//
// and returns one ExistingRecord per (row, matched field) pair. Field
// names are sorted so the generated SQL is stable; all values are
// parameterized, never interpolated.
func (s *Store) FindExisting(ctx context.Context, t record.RecordType, candidates map[string][]any) ([]discovery.ExistingRecord, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	table, err := s.registry.Table(t)
	if err != nil {
		return nil, fmt.Errorf("find existing: %w", err)
	}

	fields := make([]string, 0, len(candidates))
	for field := range candidates {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var conditions []string
	var params []any
	for _, field := range fields {
		values := candidates[field]
		if len(values) == 0 {
			continue
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		conditions = append(conditions, fmt.Sprintf("%s IN (%s)", field, placeholders))
		params = append(params, values...)
	}
	if len(conditions) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT id, %s FROM %s WHERE %s ORDER BY id",
		strings.Join(fields, ", "), table, strings.Join(conditions, " OR "))

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("find existing %s: %w", t, err)
	}
	defer rows.Close()

	// Per-field candidate sets in canonical form, for deciding which
	// field each returned row actually matched on.
	wanted := make(map[string]map[string]bool, len(fields))
	for _, field := range fields {
		set := make(map[string]bool, len(candidates[field]))
		for _, v := range candidates[field] {
			set[record.Canonical(v)] = true
		}
		wanted[field] = set
	}

	var out []discovery.ExistingRecord
	for rows.Next() {
		dest := make([]any, len(fields)+1)
		ptrs := make([]any, len(dest))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("find existing %s: scan: %w", t, err)
		}

		id := record.Identity(record.Canonical(dest[0]))
		for i, field := range fields {
			value := dest[i+1]
			if wanted[field][record.Canonical(value)] {
				out = append(out, discovery.ExistingRecord{
					Identity: id,
					Field:    field,
					Value:    value,
				})
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find existing %s: %w", t, err)
	}
	return out, nil
}
