package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/stagehand/internal/builder"
	"github.com/roach88/stagehand/internal/discovery"
	"github.com/roach88/stagehand/internal/record"
	"github.com/roach88/stagehand/internal/session"
)

// Commit persists the plan's batches in order inside one transaction.
//
// For each builder: relationship fields are backfilled first (parent
// links from the plan's relation maps, external-id references by
// scanning the plan's builder set), then the entity is inserted and the
// generated rowid stamped as its identity. Builders whose entity
// already carries an identity were resolved as pre-existing and are
// left untouched. Batch ordering guarantees every parent has an
// identity before any child needing it is written.
func (s *Store) Commit(ctx context.Context, plan *session.CommitPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit: begin: %w", err)
	}
	defer tx.Rollback()

	for _, batch := range plan.Batches {
		table, err := s.registry.Table(batch.Type)
		if err != nil {
			return fmt.Errorf("commit batch %s: %w", batch.Type, err)
		}
		for _, b := range batch.Builders {
			s.backfillRelationships(plan, b)
			if b.GetIdentity() != "" {
				continue
			}
			if err := insertEntity(ctx, tx, table, b.GetEntity()); err != nil {
				return fmt.Errorf("commit batch %s: %w", batch.Type, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) backfillRelationships(plan *session.CommitPlan, b builder.Builder) {
	entity := b.GetEntity()
	for field, parent := range plan.Graph.ParentsOf(b) {
		entity.Set(field, string(parent.GetIdentity()))
	}
	for _, ref := range plan.Graph.ReferencesOf(b) {
		if sibling, ok := matchReference(plan.Builders, ref); ok {
			entity.Set(ref.Field, string(sibling.GetIdentity()))
		}
	}
}

func matchReference(builders []builder.Builder, ref discovery.ExternalReference) (builder.Builder, bool) {
	want := record.Canonical(ref.Value)
	for _, candidate := range builders {
		if candidate.GetRecordType() != ref.TargetType {
			continue
		}
		if v, ok := candidate.GetEntity().Get(ref.ExternalIDField); ok && record.Canonical(v) == want {
			return candidate, true
		}
	}
	return nil, false
}

func insertEntity(ctx context.Context, tx *sql.Tx, table string, e *record.Entity) error {
	cols := e.FieldNames()
	if len(cols) == 0 {
		return fmt.Errorf("insert into %s: entity has no fields", table)
	}
	params := make([]any, len(cols))
	for i, col := range cols {
		v, _ := e.Get(col)
		params[i] = v
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders)

	res, err := tx.ExecContext(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	rowid, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	e.SetIdentity(record.Identity(strconv.FormatInt(rowid, 10)))
	return nil
}
