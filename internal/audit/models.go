// Package audit is the append-only record of loan state changes, inventory
// adjustments and deletions.
package audit

import (
	"time"

	id "doccenter/pkg/domain"
)

// SubjectKind classifies what an entry is about.
type SubjectKind string

const (
	SubjectLoan      SubjectKind = "loan"
	SubjectInventory SubjectKind = "inventory"
	SubjectDeletion  SubjectKind = "deletion"
)

// Action names the audited operation.
type Action string

const (
	ActionLoanCreated      Action = "loan_created"
	ActionLoanTransitioned Action = "loan_transitioned"
	ActionQuantityAdjusted Action = "loan_quantity_adjusted"
	ActionLoanDeleted      Action = "loan_deleted"
)

// Entry is one immutable audit record. Payload is a JSON snapshot of the
// subject at the time of the action.
type Entry struct {
	ID            id.AuditEntryID `json:"id"`
	TenantID      id.TenantID     `json:"tenant_id"`
	SubjectKind   SubjectKind     `json:"subject_kind"`
	SubjectID     string          `json:"subject_id"`
	Actor         string          `json:"actor"`
	Action        Action          `json:"action"`
	FromState     string          `json:"from_state,omitempty"`
	ToState       string          `json:"to_state,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Justification string          `json:"justification,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       []byte          `json:"payload,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	ClientIP      string          `json:"client_ip,omitempty"`
	UserAgent     string          `json:"user_agent,omitempty"`
}
