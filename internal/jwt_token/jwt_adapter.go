package jwttoken

import (
	"doccenter/internal/platform/middleware"
)

func ToMiddlewareClaims(claims *Claims) *middleware.ActorClaims {
	return &middleware.ActorClaims{
		UserID:   claims.Subject,
		TenantID: claims.TenantID,
		Groups:   claims.Groups,
	}
}

type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.ActorClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
