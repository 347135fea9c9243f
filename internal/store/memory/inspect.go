package memory

import (
	"slices"

	"doccenter/internal/audit"
	"doccenter/internal/catalog"
	"doccenter/internal/lending/models"
	"doccenter/internal/notification"
	id "doccenter/pkg/domain"
	"doccenter/pkg/platform/outbox"
)

// Read-only views of the committed state, for tests and diagnostics.

func (db *DB) Title(titleID id.TitleID) (catalog.Title, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.state.titles[titleID]
	return t, ok
}

func (db *DB) Volume(volumeID id.VolumeID) (catalog.Volume, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	v, ok := db.state.volumes[volumeID]
	return v, ok
}

func (db *DB) Loan(loanID id.LoanID) (models.Loan, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	l, ok := db.state.loans[loanID]
	return l, ok
}

func (db *DB) AllLoans() []models.Loan {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]models.Loan, 0, len(db.state.loans))
	for _, l := range db.state.loans {
		out = append(out, l)
	}
	return out
}

func (db *DB) AllNotifications() []notification.Notification {
	db.mu.Lock()
	defer db.mu.Unlock()
	return slices.Clone(db.state.notifications)
}

func (db *DB) AllAuditEntries() []audit.Entry {
	db.mu.Lock()
	defer db.mu.Unlock()
	return slices.Clone(db.state.audit)
}

func (db *DB) AllAgeFailures() []models.AgeVerificationFailure {
	db.mu.Lock()
	defer db.mu.Unlock()
	return slices.Clone(db.state.failures)
}

func (db *DB) AllOutbox() []outbox.Message {
	db.mu.Lock()
	defer db.mu.Unlock()
	return slices.Clone(db.state.outbox)
}
