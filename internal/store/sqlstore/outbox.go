package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"doccenter/pkg/platform/outbox"
)

// FetchUnpublished implements outbox.Source. Rows come back in insertion
// order.
func (db *DB) FetchUnpublished(ctx context.Context, limit int) ([]outbox.Message, error) {
	ds := db.dialect.From("outbox").Prepared(true).
		Where(goqu.C("published_at").IsNull()).
		Order(goqu.I("seq").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []outboxRow
	if err := db.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("fetch outbox: %w", err)
	}
	out := make([]outbox.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toMessage())
	}
	return out, nil
}

// MarkPublished implements outbox.Source.
func (db *DB) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := db.dialect.Update("outbox").Prepared(true).
		Set(goqu.Record{"published_at": at.UTC()}).
		Where(goqu.C("id").In(ids), goqu.C("published_at").IsNull()).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := db.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
