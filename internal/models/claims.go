package models

import "github.com/golang-jwt/jwt/v4"

// JwtCustomClaims are the claims accepted in jwt auth mode. The subject carries the owner id.
type JwtCustomClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
