// Package admission decides whether a loan request may proceed.
//
// Evaluate is pure domain logic: no I/O, no side effects. The lending service
// gathers the facts, calls Evaluate, and performs the duplicate-submission
// claim itself only once every other check has passed.
package admission

import (
	"fmt"
	"time"

	"doccenter/internal/catalog"
	"doccenter/internal/lending/models"
	"doccenter/internal/membership"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
)

// Input is everything the evaluator looks at. A nil Member means the member
// lookup found nothing; a nil Volume with a non-nil VolumeID means the
// requested volume does not exist.
type Input struct {
	TenantID    id.TenantID
	MemberID    id.MemberID
	Member      *membership.Member
	Title       *catalog.Title
	VolumeID    *id.VolumeID
	Volume      *catalog.Volume
	Quantity    int
	DueDate     time.Time
	AttemptedAt time.Time
}

// Decision is the evaluator's verdict. On deny, Code and Detail explain the
// first failing check; AgeFailure is set when the denial must be recorded.
type Decision struct {
	Allowed     bool
	Code        dErrors.Code
	Field       string
	Detail      string
	MemberAge   *int
	AgeVerified bool
	AgeFailure  *models.AgeVerificationFailure
}

// Err renders a deny decision as a domain error. Allowed decisions return nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Field != "" {
		return dErrors.NewField(d.Code, d.Field, d.Detail)
	}
	return dErrors.New(d.Code, d.Detail)
}

func deny(code dErrors.Code, field, detail string) Decision {
	return Decision{Code: code, Field: field, Detail: detail}
}

// Duplicate is the verdict for a request whose idempotency key was already
// claimed inside the window.
func Duplicate() Decision {
	return deny(dErrors.CodeDuplicateSubmission, "idempotency_key",
		"demande déjà soumise, veuillez patienter avant de réessayer")
}

// Evaluate runs the admission checks in order and stops at the first failure:
//  1. member exists
//  2. member is active and not suspended
//  3. title is physical and available
//  4. a volume is given iff the title has volumes, and it belongs to the title
//  5. quantity is at least 1
//  6. enough units are available on the targeted counter
//  7. due date is not before the loan date
//  8. the member is old enough (unknown age fails)
//
// On allow, MemberAge carries the age snapshot stored on the loan.
func Evaluate(in Input) Decision {
	today := id.DateOf(in.AttemptedAt)

	if in.Member == nil {
		return deny(dErrors.CodeUnknownMember, "member_id", "membre introuvable")
	}

	if !in.Member.CanBorrow() {
		detail := "le compte du membre est inactif"
		if in.Member.Suspension.Suspended {
			detail = "le membre est suspendu"
			if in.Member.Suspension.Reason != "" {
				detail += ": " + in.Member.Suspension.Reason
			}
		}
		return deny(dErrors.CodeMemberInactive, "member_id", detail)
	}

	if in.Title == nil {
		return deny(dErrors.CodeNotFound, "title_id", "livre introuvable")
	}
	if !in.Title.IsLendable() {
		detail := fmt.Sprintf("le livre %q n'est pas disponible au prêt", in.Title.Name)
		if in.Title.IsDigital {
			detail = fmt.Sprintf("le livre %q est numérique et ne peut pas être prêté", in.Title.Name)
		}
		return deny(dErrors.CodeTitleNotLendable, "title_id", detail)
	}

	if d, ok := checkVolume(in); !ok {
		return d
	}

	if in.Quantity < 1 {
		return deny(dErrors.CodeBadQuantity, "quantity", "la quantité doit être au moins 1")
	}

	snap := catalog.SnapshotOf(in.Title, in.Volume)
	if snap.Available < in.Quantity {
		return deny(dErrors.CodeInsufficientInventory, "quantity",
			fmt.Sprintf("seulement %d exemplaire(s) disponible(s), %d demandé(s)", snap.Available, in.Quantity))
	}

	if id.DateOf(in.DueDate).Before(today) {
		return deny(dErrors.CodeDueDateInvalid, "due_date",
			"la date de retour ne peut pas précéder la date de prêt")
	}

	return checkAge(in, today)
}

func checkVolume(in Input) (Decision, bool) {
	requested := in.VolumeID != nil && !in.VolumeID.IsNil()
	switch {
	case in.Title.HasVolumes && !requested:
		return deny(dErrors.CodeVolumeMismatch, "volume_id", "ce livre comporte plusieurs tomes, précisez le tome"), false
	case !in.Title.HasVolumes && requested:
		return deny(dErrors.CodeVolumeMismatch, "volume_id", "ce livre ne comporte pas de tomes"), false
	case requested && (in.Volume == nil || in.Volume.TitleID != in.Title.ID):
		return deny(dErrors.CodeVolumeMismatch, "volume_id", "le tome n'appartient pas à ce livre"), false
	}
	return Decision{}, true
}

func checkAge(in Input, today time.Time) Decision {
	age, known := in.Member.AgeOn(today)
	var snapshot *int
	if known {
		snapshot = &age
	}

	required := in.Title.MinimumAgeRequired
	if required <= 0 {
		return Decision{Allowed: true, MemberAge: snapshot, AgeVerified: true}
	}
	if known && age >= required {
		return Decision{Allowed: true, MemberAge: snapshot, AgeVerified: true}
	}

	detail := fmt.Sprintf("ce livre est réservé aux lecteurs de %d ans et plus (âge inconnu)", required)
	if known {
		detail = fmt.Sprintf("ce livre est réservé aux lecteurs de %d ans et plus (âge du membre : %d ans)", required, age)
	}
	d := deny(dErrors.CodeAgeRestricted, "member_id", detail)
	d.MemberAge = snapshot
	d.AgeFailure = &models.AgeVerificationFailure{
		TenantID:    in.TenantID,
		MemberID:    in.Member.ID,
		TitleID:     in.Title.ID,
		AttemptedAt: in.AttemptedAt,
		MemberAge:   snapshot,
		RequiredAge: required,
	}
	return d
}
