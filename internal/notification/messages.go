package notification

import (
	"fmt"

	"doccenter/internal/lending/models"
	"doccenter/pkg/email"
)

const dateLayout = "02/01/2006"

var reasonLabels = map[models.CancellationReason]string{
	models.ReasonMemberRequest:   "à la demande du membre",
	models.ReasonStaffDecision:   "décision du personnel",
	models.ReasonUnavailable:     "exemplaire indisponible",
	models.ReasonDuplicate:       "demande en double",
	models.ReasonPolicyViolation: "non-respect du règlement",
	models.ReasonOther:           "autre motif",
}

func reasonLabel(r models.CancellationReason) string {
	if label, ok := reasonLabels[r]; ok {
		return label
	}
	return string(r)
}

type route struct {
	recipient Recipient
	kind      Kind
	message   string
	email     string
}

// routes fans an event out to its recipients. Member routes are skipped
// when the member has no associated identity.
func (d *Dispatcher) routes(ev models.Event) []route {
	due := ev.DueDate.Format(dateLayout)
	if ev.MemberName == "" {
		ev.MemberName = email.DisplayName(ev.MemberEmail)
	}
	if ev.MemberName == "" {
		ev.MemberName = "un membre"
	}
	center := func(kind Kind, msg string) route {
		return route{recipient: CenterRecipient(), kind: kind, message: msg, email: d.cfg.CenterEmail}
	}
	var out []route
	member := func(kind Kind, msg string) {
		if ev.MemberUserID == nil || ev.MemberUserID.IsNil() {
			return
		}
		out = append(out, route{recipient: IdentityRecipient(*ev.MemberUserID), kind: kind, message: msg, email: ev.MemberEmail})
	}

	switch ev.Kind {
	case models.EventLoanCreated:
		out = append(out, center(KindInfo, fmt.Sprintf("Nouveau prêt: %s prêté à %s", ev.TitleName, ev.MemberName)))
		member(KindInfo, fmt.Sprintf("Vous avez emprunté: %s. À retourner avant le %s", ev.TitleName, due))
	case models.EventLoanApproved:
		member(KindInfo, fmt.Sprintf("Votre demande de prêt pour %s a été approuvée. À retourner avant le %s", ev.TitleName, due))
	case models.EventLoanRejected:
		member(KindAlert, fmt.Sprintf("Votre demande de prêt pour %s a été refusée (%s)", ev.TitleName, reasonLabel(ev.Reason)))
	case models.EventLoanReturned:
		out = append(out, center(KindInfo, fmt.Sprintf("Livre retourné: %s par %s", ev.TitleName, ev.MemberName)))
	case models.EventLoanCancelled:
		out = append(out, center(KindInfo, fmt.Sprintf("Prêt annulé: %s pour %s (%s)", ev.TitleName, ev.MemberName, reasonLabel(ev.Reason))))
		member(KindInfo, fmt.Sprintf("Votre prêt de %s a été annulé (%s)", ev.TitleName, reasonLabel(ev.Reason)))
	case models.EventLoanDueSoon:
		member(KindAlert, fmt.Sprintf("Rappel: %s doit être retourné avant le %s", ev.TitleName, due))
	case models.EventLoanOverdue:
		member(KindAlert, fmt.Sprintf("RETARD: %s devait être retourné le %s", ev.TitleName, due))
		out = append(out, center(KindAlert, fmt.Sprintf("RETARD: %s emprunté par %s devait être retourné le %s", ev.TitleName, ev.MemberName, due)))
	}
	return out
}
