package handler

import (
	"time"

	"doccenter/internal/audit"
	"doccenter/internal/lending/models"
	id "doccenter/pkg/domain"
)

// CreateLoanResponse is returned by POST /loans.
type CreateLoanResponse struct {
	LoanID string       `json:"loan_id"`
	Loan   LoanResponse `json:"loan"`
}

// LoanResponse is the caller-facing loan record.
type LoanResponse struct {
	ID                 string     `json:"id"`
	TitleID            string     `json:"title_id"`
	VolumeID           *string    `json:"volume_id,omitempty"`
	MemberID           string     `json:"member_id"`
	Quantity           int        `json:"quantity"`
	LoanDate           string     `json:"loan_date"`
	DueDate            string     `json:"due_date"`
	ReturnDate         *string    `json:"return_date,omitempty"`
	Status             string     `json:"status"`
	IsOverdue          bool       `json:"is_overdue"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancellationNotes  string     `json:"cancellation_notes,omitempty"`
	CancellationDate   *time.Time `json:"cancellation_date,omitempty"`
	AgeVerified        bool       `json:"age_verified"`
	MemberAge          *int       `json:"member_age,omitempty"`
	ProcessedBy        string     `json:"processed_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func FromView(v models.LoanView) LoanResponse {
	l := v.Loan
	resp := LoanResponse{
		ID:                 l.ID.String(),
		TitleID:            l.TitleID.String(),
		MemberID:           l.MemberID.String(),
		Quantity:           l.Quantity,
		LoanDate:           l.LoanDate.Format(id.DateLayout),
		DueDate:            l.DueDate.Format(id.DateLayout),
		Status:             string(l.Status),
		IsOverdue:          v.IsOverdue,
		CancellationReason: string(l.CancellationReason),
		CancellationNotes:  l.CancellationNotes,
		CancellationDate:   l.CancellationDate,
		AgeVerified:        l.AgeVerified,
		MemberAge:          l.MemberAge,
		ProcessedBy:        l.ProcessedBy,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
	if l.VolumeID != nil {
		s := l.VolumeID.String()
		resp.VolumeID = &s
	}
	if l.ReturnDate != nil {
		s := l.ReturnDate.Format(id.DateLayout)
		resp.ReturnDate = &s
	}
	return resp
}

// LoanListResponse is returned by GET /members/{memberID}/loans.
type LoanListResponse struct {
	Filter string         `json:"filter"`
	Loans  []LoanResponse `json:"loans"`
	Total  int            `json:"total"`
}

func FromViews(filter models.ListFilter, views []models.LoanView) LoanListResponse {
	loans := make([]LoanResponse, 0, len(views))
	for _, v := range views {
		loans = append(loans, FromView(v))
	}
	return LoanListResponse{Filter: string(filter), Loans: loans, Total: len(loans)}
}

// AgeFailureResponse is one recorded age-verification denial.
type AgeFailureResponse struct {
	ID          string    `json:"id"`
	TitleID     string    `json:"title_id"`
	AttemptedAt time.Time `json:"attempted_at"`
	MemberAge   *int      `json:"member_age"`
	RequiredAge int       `json:"required_age"`
}

type AgeFailureListResponse struct {
	Failures []AgeFailureResponse `json:"failures"`
	Total    int                  `json:"total"`
}

func FromAgeFailures(failures []*models.AgeVerificationFailure) AgeFailureListResponse {
	out := make([]AgeFailureResponse, 0, len(failures))
	for _, f := range failures {
		out = append(out, AgeFailureResponse{
			ID:          f.ID.String(),
			TitleID:     f.TitleID.String(),
			AttemptedAt: f.AttemptedAt,
			MemberAge:   f.MemberAge,
			RequiredAge: f.RequiredAge,
		})
	}
	return AgeFailureListResponse{Failures: out, Total: len(out)}
}

// AuditEntryResponse is one entry of a loan's history. Payload snapshots
// stay server-side.
type AuditEntryResponse struct {
	ID            string    `json:"id"`
	SubjectKind   string    `json:"subject_kind"`
	Action        string    `json:"action"`
	Actor         string    `json:"actor"`
	FromState     string    `json:"from_state,omitempty"`
	ToState       string    `json:"to_state,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Justification string    `json:"justification,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id,omitempty"`
}

type AuditListResponse struct {
	Entries []AuditEntryResponse `json:"entries"`
}

func FromAuditEntries(entries []*audit.Entry) AuditListResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:            e.ID.String(),
			SubjectKind:   string(e.SubjectKind),
			Action:        string(e.Action),
			Actor:         e.Actor,
			FromState:     e.FromState,
			ToState:       e.ToState,
			Reason:        e.Reason,
			Justification: e.Justification,
			Timestamp:     e.Timestamp,
			RequestID:     e.RequestID,
		})
	}
	return AuditListResponse{Entries: out}
}
