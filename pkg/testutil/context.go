package testutil

import (
	"net/http"
	"time"

	id "doccenter/pkg/domain"
	"doccenter/pkg/requestcontext"
)

// WithActor stores actor in the request context, as RequireActor would
// after validating a token.
func WithActor(req *http.Request, actor id.Actor) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithTenant stores the token's tenant in the request context.
func WithTenant(req *http.Request, tenantID id.TenantID) *http.Request {
	return req.WithContext(requestcontext.WithTenant(req.Context(), tenantID))
}

// WithNow pins the request time.
func WithNow(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithBearer sets the Authorization header.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
