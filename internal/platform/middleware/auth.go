package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/httputil"
	pkgstrings "doccenter/pkg/platform/strings"
	"doccenter/pkg/requestcontext"
)

// TokenValidator defines the interface for validating bearer tokens
type TokenValidator interface {
	ValidateToken(tokenString string) (*ActorClaims, error)
}

// ActorClaims represents the claims we expect from the token validator
type ActorClaims struct {
	UserID   string
	TenantID string
	Groups   []string
}

// RequireActor authenticates the bearer token and stores the actor and the
// token's tenant in the request context.
func RequireActor(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
				return
			}
			tenantID, err := id.ParseTenantID(claims.TenantID)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token tenant"))
				return
			}

			actor := id.Actor{ID: userID, Groups: pkgstrings.NormalizeGroups(claims.Groups)}
			ctx = requestcontext.WithActor(ctx, actor)
			ctx = requestcontext.WithTenant(ctx, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenant rejects requests whose {param} URL segment names another
// tenant than the token's. Super admins may act on any tenant.
func RequireTenant(param string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			routeTenant, err := id.ParseTenantID(chi.URLParam(r, param))
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			actor, _ := requestcontext.Actor(ctx)
			tokenTenant, ok := requestcontext.Tenant(ctx)
			if !ok || (tokenTenant != routeTenant && !slices.Contains(actor.Groups, id.GroupSuperAdmin)) {
				logger.WarnContext(ctx, "cross-tenant access rejected",
					"request_id", requestcontext.RequestID(ctx),
					"tenant_id", routeTenant.String(),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "accès refusé pour ce centre"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
