// Package handler exposes the notification inbox over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"doccenter/internal/notification"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/httputil"
	"doccenter/pkg/requestcontext"
)

type Service interface {
	List(ctx context.Context, tenantID id.TenantID, actor id.Actor, unreadOnly bool, limit int) ([]*notification.Notification, error)
	MarkRead(ctx context.Context, tenantID id.TenantID, actor id.Actor, notificationID id.NotificationID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the inbox on a router scoped to /tenants/{tenantID}.
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.HandleList)
	r.Post("/notifications/{notificationID}/read", h.HandleMarkRead)
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (id.Actor, id.TenantID, bool) {
	actor, ok := requestcontext.Actor(r.Context())
	if !ok || actor.ID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.Actor{}, id.TenantID{}, false
	}
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.Actor{}, id.TenantID{}, false
	}
	return actor, tenantID, true
}

// HandleList handles GET /notifications?unread=true&limit=N.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var unreadOnly bool
	if raw := q.Get("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.NewField(dErrors.CodeValidation, "unread", "unread must be true or false"))
			return
		}
		unreadOnly = v
	}
	var limit int
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			httputil.WriteError(w, dErrors.NewField(dErrors.CodeValidation, "limit", "limit must be a positive integer"))
			return
		}
		limit = v
	}

	list, err := h.service.List(ctx, tenantID, actor, unreadOnly, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list notifications",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromNotifications(list))
}

// HandleMarkRead handles POST /notifications/{notificationID}/read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "notificationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.MarkRead(ctx, tenantID, actor, notificationID); err != nil {
		h.logger.WarnContext(ctx, "failed to mark notification read",
			"request_id", requestcontext.RequestID(ctx),
			"notification_id", notificationID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type NotificationResponse struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	LoanID    *string   `json:"loan_id,omitempty"`
	Event     string    `json:"event"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Unread        int                    `json:"unread"`
}

func FromNotifications(list []*notification.Notification) NotificationListResponse {
	out := make([]NotificationResponse, 0, len(list))
	unread := 0
	for _, n := range list {
		resp := NotificationResponse{
			ID:        n.ID.String(),
			Recipient: n.Recipient.Key(),
			Event:     string(n.Event),
			Message:   n.Message,
			Kind:      string(n.Kind),
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		}
		if n.LoanID != nil {
			s := n.LoanID.String()
			resp.LoanID = &s
		}
		if !n.Read {
			unread++
		}
		out = append(out, resp)
	}
	return NotificationListResponse{Notifications: out, Unread: unread}
}
