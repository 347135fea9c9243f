package sqlstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"doccenter/internal/audit"
	"doccenter/internal/catalog"
	"doccenter/internal/lending/models"
	"doccenter/internal/membership"
	"doccenter/internal/notification"
	id "doccenter/pkg/domain"
	"doccenter/pkg/platform/outbox"
)

// Row structs carry both the sqlx scan tags and the goqu insert tags. IDs
// travel as text so the same structs serve the UUID columns of Postgres
// and the TEXT columns of SQLite.

type titleRow struct {
	ID                 string `db:"id"`
	TenantID           string `db:"tenant_id"`
	Name               string `db:"name"`
	MinimumAgeRequired int    `db:"minimum_age_required"`
	HasVolumes         bool   `db:"has_volumes"`
	TotalQuantity      int    `db:"total_quantity"`
	AvailableQuantity  int    `db:"available_quantity"`
	IsDigital          bool   `db:"is_digital"`
	Status             string `db:"status"`
}

func fromTitle(t catalog.Title) titleRow {
	return titleRow{
		ID:                 t.ID.String(),
		TenantID:           t.TenantID.String(),
		Name:               t.Name,
		MinimumAgeRequired: t.MinimumAgeRequired,
		HasVolumes:         t.HasVolumes,
		TotalQuantity:      t.TotalQuantity,
		AvailableQuantity:  t.AvailableQuantity,
		IsDigital:          t.IsDigital,
		Status:             string(t.Status),
	}
}

func (r titleRow) toTitle() (*catalog.Title, error) {
	titleID, err := parseUUID(r.ID)
	if err != nil {
		return nil, err
	}
	tenantID, err := parseUUID(r.TenantID)
	if err != nil {
		return nil, err
	}
	return &catalog.Title{
		ID:                 id.TitleID(titleID),
		TenantID:           id.TenantID(tenantID),
		Name:               r.Name,
		MinimumAgeRequired: r.MinimumAgeRequired,
		HasVolumes:         r.HasVolumes,
		TotalQuantity:      r.TotalQuantity,
		AvailableQuantity:  r.AvailableQuantity,
		IsDigital:          r.IsDigital,
		Status:             catalog.TitleStatus(r.Status),
	}, nil
}

type volumeRow struct {
	ID                string `db:"id"`
	TenantID          string `db:"tenant_id"`
	TitleID           string `db:"title_id"`
	Number            int    `db:"volume_number"`
	TotalQuantity     int    `db:"total_quantity"`
	AvailableQuantity int    `db:"available_quantity"`
}

func fromVolume(v catalog.Volume) volumeRow {
	return volumeRow{
		ID:                v.ID.String(),
		TenantID:          v.TenantID.String(),
		TitleID:           v.TitleID.String(),
		Number:            v.Number,
		TotalQuantity:     v.TotalQuantity,
		AvailableQuantity: v.AvailableQuantity,
	}
}

func (r volumeRow) toVolume() (*catalog.Volume, error) {
	ids, err := parseUUIDs(r.ID, r.TenantID, r.TitleID)
	if err != nil {
		return nil, err
	}
	return &catalog.Volume{
		ID:                id.VolumeID(ids[0]),
		TenantID:          id.TenantID(ids[1]),
		TitleID:           id.TitleID(ids[2]),
		Number:            r.Number,
		TotalQuantity:     r.TotalQuantity,
		AvailableQuantity: r.AvailableQuantity,
	}, nil
}

type memberRow struct {
	ID               string         `db:"id"`
	TenantID         string         `db:"tenant_id"`
	Name             string         `db:"name"`
	Email            sql.NullString `db:"email"`
	UserID           sql.NullString `db:"user_id"`
	DateOfBirth      sql.NullTime   `db:"date_of_birth"`
	Active           bool           `db:"active"`
	Suspended        bool           `db:"suspended"`
	SuspensionReason sql.NullString `db:"suspension_reason"`
	SuspendedSince   sql.NullTime   `db:"suspended_since"`
}

func fromMember(m membership.Member) memberRow {
	row := memberRow{
		ID:               m.ID.String(),
		TenantID:         m.TenantID.String(),
		Name:             m.Name,
		Email:            nullString(m.Email),
		DateOfBirth:      nullTime(m.DateOfBirth),
		Active:           m.Active,
		Suspended:        m.Suspension.Suspended,
		SuspensionReason: nullString(m.Suspension.Reason),
		SuspendedSince:   nullTime(m.Suspension.Since),
	}
	if m.UserID != nil {
		row.UserID = nullString(m.UserID.String())
	}
	return row
}

func (r memberRow) toMember() (*membership.Member, error) {
	ids, err := parseUUIDs(r.ID, r.TenantID)
	if err != nil {
		return nil, err
	}
	m := &membership.Member{
		ID:          id.MemberID(ids[0]),
		TenantID:    id.TenantID(ids[1]),
		Name:        r.Name,
		Email:       r.Email.String,
		DateOfBirth: timePtr(r.DateOfBirth),
		Active:      r.Active,
		Suspension: membership.Suspension{
			Suspended: r.Suspended,
			Reason:    r.SuspensionReason.String,
			Since:     timePtr(r.SuspendedSince),
		},
	}
	if r.UserID.Valid {
		userID, err := parseUUID(r.UserID.String)
		if err != nil {
			return nil, err
		}
		uid := id.UserID(userID)
		m.UserID = &uid
	}
	return m, nil
}

type loanRow struct {
	ID                 string         `db:"id"`
	TenantID           string         `db:"tenant_id"`
	TitleID            string         `db:"title_id"`
	VolumeID           sql.NullString `db:"volume_id"`
	MemberID           string         `db:"member_id"`
	Quantity           int            `db:"quantity"`
	LoanDate           time.Time      `db:"loan_date"`
	DueDate            time.Time      `db:"due_date"`
	ReturnDate         sql.NullTime   `db:"return_date"`
	Status             string         `db:"status"`
	CancellationReason sql.NullString `db:"cancellation_reason"`
	CancellationNotes  sql.NullString `db:"cancellation_notes"`
	CancellationDate   sql.NullTime   `db:"cancellation_date"`
	AgeVerified        bool           `db:"age_verified"`
	MemberAge          sql.NullInt64  `db:"member_age"`
	ProcessedBy        string         `db:"processed_by"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func fromLoan(l *models.Loan) loanRow {
	row := loanRow{
		ID:                 l.ID.String(),
		TenantID:           l.TenantID.String(),
		TitleID:            l.TitleID.String(),
		MemberID:           l.MemberID.String(),
		Quantity:           l.Quantity,
		LoanDate:           l.LoanDate.UTC(),
		DueDate:            l.DueDate.UTC(),
		ReturnDate:         nullTime(l.ReturnDate),
		Status:             string(l.Status),
		CancellationReason: nullString(string(l.CancellationReason)),
		CancellationNotes:  nullString(l.CancellationNotes),
		CancellationDate:   nullTime(l.CancellationDate),
		AgeVerified:        l.AgeVerified,
		MemberAge:          nullInt(l.MemberAge),
		ProcessedBy:        l.ProcessedBy,
		CreatedAt:          l.CreatedAt.UTC(),
		UpdatedAt:          l.UpdatedAt.UTC(),
	}
	if l.VolumeID != nil {
		row.VolumeID = nullString(l.VolumeID.String())
	}
	return row
}

func (r loanRow) toLoan() (*models.Loan, error) {
	ids, err := parseUUIDs(r.ID, r.TenantID, r.TitleID, r.MemberID)
	if err != nil {
		return nil, err
	}
	l := &models.Loan{
		ID:                 id.LoanID(ids[0]),
		TenantID:           id.TenantID(ids[1]),
		TitleID:            id.TitleID(ids[2]),
		MemberID:           id.MemberID(ids[3]),
		Quantity:           r.Quantity,
		LoanDate:           id.DateOf(r.LoanDate),
		DueDate:            id.DateOf(r.DueDate),
		Status:             models.Status(r.Status),
		CancellationReason: models.CancellationReason(r.CancellationReason.String),
		CancellationNotes:  r.CancellationNotes.String,
		CancellationDate:   timePtr(r.CancellationDate),
		AgeVerified:        r.AgeVerified,
		ProcessedBy:        r.ProcessedBy,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
	if r.ReturnDate.Valid {
		d := id.DateOf(r.ReturnDate.Time)
		l.ReturnDate = &d
	}
	if r.VolumeID.Valid {
		volumeID, err := parseUUID(r.VolumeID.String)
		if err != nil {
			return nil, err
		}
		vid := id.VolumeID(volumeID)
		l.VolumeID = &vid
	}
	if r.MemberAge.Valid {
		age := int(r.MemberAge.Int64)
		l.MemberAge = &age
	}
	return l, nil
}

type ageFailureRow struct {
	ID          string        `db:"id"`
	TenantID    string        `db:"tenant_id"`
	MemberID    string        `db:"member_id"`
	TitleID     string        `db:"title_id"`
	AttemptedAt time.Time     `db:"attempted_at"`
	MemberAge   sql.NullInt64 `db:"member_age"`
	RequiredAge int           `db:"required_age"`
}

func fromAgeFailure(f *models.AgeVerificationFailure) ageFailureRow {
	return ageFailureRow{
		ID:          f.ID.String(),
		TenantID:    f.TenantID.String(),
		MemberID:    f.MemberID.String(),
		TitleID:     f.TitleID.String(),
		AttemptedAt: f.AttemptedAt.UTC(),
		MemberAge:   nullInt(f.MemberAge),
		RequiredAge: f.RequiredAge,
	}
}

func (r ageFailureRow) toAgeFailure() (*models.AgeVerificationFailure, error) {
	ids, err := parseUUIDs(r.ID, r.TenantID, r.MemberID, r.TitleID)
	if err != nil {
		return nil, err
	}
	f := &models.AgeVerificationFailure{
		ID:          id.AgeFailureID(ids[0]),
		TenantID:    id.TenantID(ids[1]),
		MemberID:    id.MemberID(ids[2]),
		TitleID:     id.TitleID(ids[3]),
		AttemptedAt: r.AttemptedAt.UTC(),
		RequiredAge: r.RequiredAge,
	}
	if r.MemberAge.Valid {
		age := int(r.MemberAge.Int64)
		f.MemberAge = &age
	}
	return f, nil
}

type auditRow struct {
	Seq           int64     `db:"seq" goqu:"skipinsert"`
	ID            string    `db:"id"`
	TenantID      string    `db:"tenant_id"`
	SubjectKind   string    `db:"subject_kind"`
	SubjectID     string    `db:"subject_id"`
	Actor         string    `db:"actor"`
	Action        string    `db:"action"`
	FromState     string    `db:"from_state"`
	ToState       string    `db:"to_state"`
	Reason        string    `db:"reason"`
	Justification string    `db:"justification"`
	OccurredAt    time.Time `db:"occurred_at"`
	Payload       []byte    `db:"payload"`
	RequestID     string    `db:"request_id"`
	ClientIP      string    `db:"client_ip"`
	UserAgent     string    `db:"user_agent"`
}

func fromAuditEntry(e *audit.Entry) auditRow {
	return auditRow{
		ID:            e.ID.String(),
		TenantID:      e.TenantID.String(),
		SubjectKind:   string(e.SubjectKind),
		SubjectID:     e.SubjectID,
		Actor:         e.Actor,
		Action:        string(e.Action),
		FromState:     e.FromState,
		ToState:       e.ToState,
		Reason:        e.Reason,
		Justification: e.Justification,
		OccurredAt:    e.Timestamp.UTC(),
		Payload:       e.Payload,
		RequestID:     e.RequestID,
		ClientIP:      e.ClientIP,
		UserAgent:     e.UserAgent,
	}
}

func (r auditRow) toEntry() (*audit.Entry, error) {
	ids, err := parseUUIDs(r.ID, r.TenantID)
	if err != nil {
		return nil, err
	}
	return &audit.Entry{
		ID:            id.AuditEntryID(ids[0]),
		TenantID:      id.TenantID(ids[1]),
		SubjectKind:   audit.SubjectKind(r.SubjectKind),
		SubjectID:     r.SubjectID,
		Actor:         r.Actor,
		Action:        audit.Action(r.Action),
		FromState:     r.FromState,
		ToState:       r.ToState,
		Reason:        r.Reason,
		Justification: r.Justification,
		Timestamp:     r.OccurredAt.UTC(),
		Payload:       r.Payload,
		RequestID:     r.RequestID,
		ClientIP:      r.ClientIP,
		UserAgent:     r.UserAgent,
	}, nil
}

type notificationRow struct {
	Seq       int64          `db:"seq" goqu:"skipinsert"`
	ID        string         `db:"id"`
	TenantID  string         `db:"tenant_id"`
	Recipient string         `db:"recipient"`
	LoanID    sql.NullString `db:"loan_id"`
	Event     string         `db:"event"`
	Message   string         `db:"message"`
	Kind      string         `db:"kind"`
	Read      bool           `db:"is_read"`
	CreatedAt time.Time      `db:"created_at"`
	DedupKey  sql.NullString `db:"dedup_key"`
}

func fromNotification(n *notification.Notification) notificationRow {
	row := notificationRow{
		ID:        n.ID.String(),
		TenantID:  n.TenantID.String(),
		Recipient: n.Recipient.Key(),
		Event:     string(n.Event),
		Message:   n.Message,
		Kind:      string(n.Kind),
		Read:      n.Read,
		CreatedAt: n.CreatedAt.UTC(),
		DedupKey:  nullString(n.DedupKey),
	}
	if n.LoanID != nil {
		row.LoanID = nullString(n.LoanID.String())
	}
	return row
}

func (r notificationRow) toNotification() (*notification.Notification, error) {
	ids, err := parseUUIDs(r.ID, r.TenantID)
	if err != nil {
		return nil, err
	}
	recipient, err := notification.ParseRecipientKey(r.Recipient)
	if err != nil {
		return nil, err
	}
	n := &notification.Notification{
		ID:        id.NotificationID(ids[0]),
		TenantID:  id.TenantID(ids[1]),
		Recipient: recipient,
		Event:     models.EventKind(r.Event),
		Message:   r.Message,
		Kind:      notification.Kind(r.Kind),
		Read:      r.Read,
		CreatedAt: r.CreatedAt.UTC(),
		DedupKey:  r.DedupKey.String,
	}
	if r.LoanID.Valid {
		loanID, err := parseUUID(r.LoanID.String)
		if err != nil {
			return nil, err
		}
		lid := id.LoanID(loanID)
		n.LoanID = &lid
	}
	return n, nil
}

type outboxRow struct {
	Seq           int64        `db:"seq" goqu:"skipinsert"`
	ID            string       `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   string       `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   sql.NullTime `db:"published_at"`
}

func fromOutbox(m outbox.Message) outboxRow {
	return outboxRow{
		ID:            m.ID,
		AggregateType: m.AggregateType,
		AggregateID:   m.AggregateID,
		EventType:     m.EventType,
		Payload:       m.Payload,
		CreatedAt:     m.CreatedAt.UTC(),
		PublishedAt:   nullTime(m.PublishedAt),
	}
}

func (r outboxRow) toMessage() outbox.Message {
	return outbox.Message{
		ID:            r.ID,
		AggregateType: r.AggregateType,
		AggregateID:   r.AggregateID,
		EventType:     r.EventType,
		Payload:       r.Payload,
		CreatedAt:     r.CreatedAt.UTC(),
		PublishedAt:   timePtr(r.PublishedAt),
	}
}

func parseUUID(s string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt id %q: %w", s, err)
	}
	return u, nil
}

func parseUUIDs(values ...string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(values))
	for i, v := range values {
		u, err := parseUUID(v)
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
