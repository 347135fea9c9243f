package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"doccenter/internal/audit"
	"doccenter/internal/catalog"
	"doccenter/internal/lending/models"
	"doccenter/internal/lending/ports"
	"doccenter/internal/membership"
	"doccenter/internal/notification"
	id "doccenter/pkg/domain"
	"doccenter/pkg/platform/outbox"
	"doccenter/pkg/platform/sentinel"
	"doccenter/pkg/platform/tx"
)

// sqlBuilder is satisfied by every goqu dataset.
type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

// querier runs goqu datasets on the transaction RunInTx placed in ctx.
type querier struct {
	dialect goqu.DialectWrapper
}

var errNoTx = errors.New("sqlstore: store used outside RunInTx")

func (q querier) conn(ctx context.Context) (*sqlx.Tx, error) {
	t, ok := tx.From(ctx)
	if !ok {
		return nil, errNoTx
	}
	return t, nil
}

func (q querier) get(ctx context.Context, dest any, b sqlBuilder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	t, err := q.conn(ctx)
	if err != nil {
		return err
	}
	if err := t.GetContext(ctx, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return err
	}
	return nil
}

func (q querier) selectAll(ctx context.Context, dest any, b sqlBuilder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	t, err := q.conn(ctx)
	if err != nil {
		return err
	}
	return t.SelectContext(ctx, dest, query, args...)
}

func (q querier) exec(ctx context.Context, b sqlBuilder) (int64, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	t, err := q.conn(ctx)
	if err != nil {
		return 0, err
	}
	res, err := t.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type stores struct {
	q querier
}

func (s *stores) Loans() ports.LoanStore             { return &loanStore{q: s.q} }
func (s *stores) Catalog() catalog.Store             { return &catalogStore{q: s.q} }
func (s *stores) Members() membership.Store          { return &memberStore{q: s.q} }
func (s *stores) AgeFailures() ports.AgeFailureStore { return &ageFailureStore{q: s.q} }
func (s *stores) Audit() audit.Store                 { return &auditStore{q: s.q} }
func (s *stores) Notifications() notification.Store  { return &notificationStore{q: s.q} }

type catalogStore struct{ q querier }

func (s *catalogStore) FindTitle(ctx context.Context, tenantID id.TenantID, titleID id.TitleID) (*catalog.Title, error) {
	var row titleRow
	ds := s.q.dialect.From("titles").Prepared(true).
		Where(goqu.Ex{"id": titleID.String(), "tenant_id": tenantID.String()})
	if err := s.q.get(ctx, &row, ds); err != nil {
		return nil, err
	}
	return row.toTitle()
}

func (s *catalogStore) FindVolume(ctx context.Context, tenantID id.TenantID, volumeID id.VolumeID) (*catalog.Volume, error) {
	var row volumeRow
	ds := s.q.dialect.From("volumes").Prepared(true).
		Where(goqu.Ex{"id": volumeID.String(), "tenant_id": tenantID.String()})
	if err := s.q.get(ctx, &row, ds); err != nil {
		return nil, err
	}
	return row.toVolume()
}

func (s *catalogStore) AdjustTitle(ctx context.Context, tenantID id.TenantID, titleID id.TitleID, delta int) error {
	return s.adjust(ctx, "titles", tenantID.String(), titleID.String(), delta)
}

func (s *catalogStore) AdjustVolume(ctx context.Context, tenantID id.TenantID, volumeID id.VolumeID, delta int) error {
	return s.adjust(ctx, "volumes", tenantID.String(), volumeID.String(), delta)
}

// adjust applies delta only when the result stays within [0, total]. When
// no row matched, a second read tells missing rows from rejected deltas.
func (s *catalogStore) adjust(ctx context.Context, table, tenantID, rowID string, delta int) error {
	ds := s.q.dialect.Update(table).Prepared(true).
		Set(goqu.Record{"available_quantity": goqu.L("available_quantity + ?", delta)}).
		Where(
			goqu.Ex{"id": rowID, "tenant_id": tenantID},
			goqu.L("available_quantity + ? >= 0", delta),
			goqu.L("available_quantity + ? <= total_quantity", delta),
		)
	n, err := s.q.exec(ctx, ds)
	if err != nil {
		return fmt.Errorf("adjust %s: %w", table, err)
	}
	if n == 1 {
		return nil
	}

	var counter struct {
		Available int `db:"available_quantity"`
		Total     int `db:"total_quantity"`
	}
	sel := s.q.dialect.From(table).Prepared(true).
		Select("available_quantity", "total_quantity").
		Where(goqu.Ex{"id": rowID, "tenant_id": tenantID})
	if err := s.q.get(ctx, &counter, sel); err != nil {
		return err
	}
	if counter.Available+delta < 0 {
		return sentinel.ErrInsufficient
	}
	return sentinel.ErrInvalidState
}

type memberStore struct{ q querier }

func (s *memberStore) FindMember(ctx context.Context, tenantID id.TenantID, memberID id.MemberID) (*membership.Member, error) {
	var row memberRow
	ds := s.q.dialect.From("members").Prepared(true).
		Where(goqu.Ex{"id": memberID.String(), "tenant_id": tenantID.String()})
	if err := s.q.get(ctx, &row, ds); err != nil {
		return nil, err
	}
	return row.toMember()
}

type loanStore struct{ q querier }

func (s *loanStore) Create(ctx context.Context, loan *models.Loan) error {
	ds := s.q.dialect.Insert("loans").Prepared(true).
		Rows(fromLoan(loan)).
		OnConflict(goqu.DoNothing())
	n, err := s.q.exec(ctx, ds)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *loanStore) FindByID(ctx context.Context, tenantID id.TenantID, loanID id.LoanID) (*models.Loan, error) {
	var row loanRow
	ds := s.q.dialect.From("loans").Prepared(true).
		Where(goqu.Ex{"id": loanID.String(), "tenant_id": tenantID.String()})
	if err := s.q.get(ctx, &row, ds); err != nil {
		return nil, err
	}
	return row.toLoan()
}

func (s *loanStore) Update(ctx context.Context, loan *models.Loan) error {
	row := fromLoan(loan)
	ds := s.q.dialect.Update("loans").Prepared(true).
		Set(goqu.Record{
			"volume_id":           row.VolumeID,
			"quantity":            row.Quantity,
			"due_date":            row.DueDate,
			"return_date":         row.ReturnDate,
			"status":              row.Status,
			"cancellation_reason": row.CancellationReason,
			"cancellation_notes":  row.CancellationNotes,
			"cancellation_date":   row.CancellationDate,
			"age_verified":        row.AgeVerified,
			"member_age":          row.MemberAge,
			"processed_by":        row.ProcessedBy,
			"updated_at":          row.UpdatedAt,
		}).
		Where(goqu.Ex{"id": row.ID, "tenant_id": row.TenantID})
	n, err := s.q.exec(ctx, ds)
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *loanStore) Delete(ctx context.Context, tenantID id.TenantID, loanID id.LoanID) error {
	ds := s.q.dialect.Delete("loans").Prepared(true).
		Where(goqu.Ex{"id": loanID.String(), "tenant_id": tenantID.String()})
	n, err := s.q.exec(ctx, ds)
	if err != nil {
		return fmt.Errorf("delete loan: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *loanStore) ListByMember(ctx context.Context, tenantID id.TenantID, memberID id.MemberID, statuses []models.Status) ([]*models.Loan, error) {
	where := goqu.Ex{"tenant_id": tenantID.String(), "member_id": memberID.String()}
	if statuses != nil {
		if len(statuses) == 0 {
			return nil, nil
		}
		values := make([]string, len(statuses))
		for i, st := range statuses {
			values[i] = string(st)
		}
		where["status"] = values
	}
	ds := s.q.dialect.From("loans").Prepared(true).
		Where(where).
		Order(goqu.I("created_at").Desc())
	return s.list(ctx, ds)
}

func (s *loanStore) ListOutDueBy(ctx context.Context, cutoff time.Time) ([]*models.Loan, error) {
	ds := s.q.dialect.From("loans").Prepared(true).
		Where(
			goqu.C("status").In(string(models.StatusApproved), string(models.StatusBorrowed), string(models.StatusOverdue)),
			goqu.C("due_date").Lte(id.DateOf(cutoff)),
		).
		Order(goqu.I("due_date").Asc(), goqu.I("id").Asc())
	loans, err := s.list(ctx, ds)
	if err != nil {
		return nil, err
	}
	if loans == nil {
		loans = []*models.Loan{}
	}
	return loans, nil
}

func (s *loanStore) list(ctx context.Context, ds sqlBuilder) ([]*models.Loan, error) {
	var rows []loanRow
	if err := s.q.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	var out []*models.Loan
	for _, row := range rows {
		l, err := row.toLoan()
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

type ageFailureStore struct{ q querier }

func (s *ageFailureStore) Create(ctx context.Context, f *models.AgeVerificationFailure) error {
	ds := s.q.dialect.Insert("age_verification_failures").Prepared(true).Rows(fromAgeFailure(f))
	if _, err := s.q.exec(ctx, ds); err != nil {
		return fmt.Errorf("insert age verification failure: %w", err)
	}
	return nil
}

func (s *ageFailureStore) ListByMember(ctx context.Context, tenantID id.TenantID, memberID id.MemberID) ([]*models.AgeVerificationFailure, error) {
	var rows []ageFailureRow
	ds := s.q.dialect.From("age_verification_failures").Prepared(true).
		Where(goqu.Ex{"tenant_id": tenantID.String(), "member_id": memberID.String()}).
		Order(goqu.I("attempted_at").Desc())
	if err := s.q.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("list age verification failures: %w", err)
	}
	var out []*models.AgeVerificationFailure
	for _, row := range rows {
		f, err := row.toAgeFailure()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

type auditStore struct{ q querier }

// Append writes the entry and its outbox row in the caller's transaction.
func (s *auditStore) Append(ctx context.Context, e *audit.Entry) error {
	msg, err := outbox.NewMessage(string(e.SubjectKind), e.SubjectID, string(e.Action), e, e.Timestamp)
	if err != nil {
		return err
	}
	if _, err := s.q.exec(ctx, s.q.dialect.Insert("audit_entries").Prepared(true).Rows(fromAuditEntry(e))); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	if _, err := s.q.exec(ctx, s.q.dialect.Insert("outbox").Prepared(true).Rows(fromOutbox(msg))); err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

func (s *auditStore) ListBySubject(ctx context.Context, tenantID id.TenantID, subjectID string) ([]*audit.Entry, error) {
	var rows []auditRow
	ds := s.q.dialect.From("audit_entries").Prepared(true).
		Where(goqu.Ex{"tenant_id": tenantID.String(), "subject_id": subjectID}).
		Order(goqu.I("seq").Asc())
	if err := s.q.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	var out []*audit.Entry
	for _, row := range rows {
		e, err := row.toEntry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

type notificationStore struct{ q querier }

// Create relies on the unique dedup_key column; a suppressed duplicate
// inserts nothing and reports ErrConflict.
func (s *notificationStore) Create(ctx context.Context, n *notification.Notification) error {
	ds := s.q.dialect.Insert("notifications").Prepared(true).
		Rows(fromNotification(n)).
		OnConflict(goqu.DoNothing())
	affected, err := s.q.exec(ctx, ds)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *notificationStore) LastCreated(ctx context.Context, tenantID id.TenantID, recipient notification.Recipient, loanID id.LoanID, event models.EventKind) (time.Time, bool, error) {
	var rows []notificationRow
	ds := s.q.dialect.From("notifications").Prepared(true).
		Where(goqu.Ex{
			"tenant_id": tenantID.String(),
			"recipient": recipient.Key(),
			"loan_id":   loanID.String(),
			"event":     string(event),
		}).
		Order(goqu.I("created_at").Desc()).
		Limit(1)
	if err := s.q.selectAll(ctx, &rows, ds); err != nil {
		return time.Time{}, false, fmt.Errorf("last notification: %w", err)
	}
	if len(rows) == 0 {
		return time.Time{}, false, nil
	}
	return rows[0].CreatedAt.UTC(), true, nil
}

func (s *notificationStore) ListForRecipient(ctx context.Context, tenantID id.TenantID, recipient notification.Recipient, unreadOnly bool, limit int) ([]*notification.Notification, error) {
	where := goqu.Ex{"tenant_id": tenantID.String(), "recipient": recipient.Key()}
	if unreadOnly {
		where["is_read"] = false
	}
	ds := s.q.dialect.From("notifications").Prepared(true).
		Where(where).
		Order(goqu.I("seq").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	var rows []notificationRow
	if err := s.q.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	var out []*notification.Notification
	for _, row := range rows {
		n, err := row.toNotification()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *notificationStore) FindByID(ctx context.Context, tenantID id.TenantID, notificationID id.NotificationID) (*notification.Notification, error) {
	var row notificationRow
	ds := s.q.dialect.From("notifications").Prepared(true).
		Where(goqu.Ex{"id": notificationID.String(), "tenant_id": tenantID.String()})
	if err := s.q.get(ctx, &row, ds); err != nil {
		return nil, err
	}
	return row.toNotification()
}

func (s *notificationStore) MarkRead(ctx context.Context, tenantID id.TenantID, notificationID id.NotificationID) error {
	ds := s.q.dialect.Update("notifications").Prepared(true).
		Set(goqu.Record{"is_read": true}).
		Where(goqu.Ex{"id": notificationID.String(), "tenant_id": tenantID.String()})
	n, err := s.q.exec(ctx, ds)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
