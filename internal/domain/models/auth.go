package models

import "github.com/golang-jwt/jwt/v5"

// Claims is the JWT claims structure issued by the identity provider.
// The subject claim is the opaque owner id every tree operation is scoped by;
// token issuance itself happens outside this service.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// OwnerID returns the owner identifier from the JWT subject claim.
func (c *Claims) OwnerID() string {
	return c.Subject
}
