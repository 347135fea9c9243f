package sqlstore

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"doccenter/internal/catalog"
	"doccenter/internal/membership"
)

// Catalog and member CRUD live outside the engine. These upserts are how
// tests and the seed command populate them.

func (db *DB) PutTitle(ctx context.Context, t catalog.Title) error {
	row := fromTitle(t)
	return db.upsert(ctx, "titles", row, goqu.Record{
		"name":                 row.Name,
		"minimum_age_required": row.MinimumAgeRequired,
		"has_volumes":          row.HasVolumes,
		"total_quantity":       row.TotalQuantity,
		"available_quantity":   row.AvailableQuantity,
		"is_digital":           row.IsDigital,
		"status":               row.Status,
	})
}

func (db *DB) PutVolume(ctx context.Context, v catalog.Volume) error {
	row := fromVolume(v)
	return db.upsert(ctx, "volumes", row, goqu.Record{
		"volume_number":      row.Number,
		"total_quantity":     row.TotalQuantity,
		"available_quantity": row.AvailableQuantity,
	})
}

func (db *DB) PutMember(ctx context.Context, m membership.Member) error {
	row := fromMember(m)
	return db.upsert(ctx, "members", row, goqu.Record{
		"name":              row.Name,
		"email":             row.Email,
		"user_id":           row.UserID,
		"date_of_birth":     row.DateOfBirth,
		"active":            row.Active,
		"suspended":         row.Suspended,
		"suspension_reason": row.SuspensionReason,
		"suspended_since":   row.SuspendedSince,
	})
}

func (db *DB) upsert(ctx context.Context, table string, row any, update goqu.Record) error {
	query, args, err := db.dialect.Insert(table).Prepared(true).
		Rows(row).
		OnConflict(goqu.DoUpdate("id", update)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := db.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}
