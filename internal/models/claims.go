package models

import "github.com/golang-jwt/jwt/v5"

// Actor roles carried in access tokens
const (
	RoleAdmin           = "admin"
	RoleDeliveryPartner = EarnerTypeDeliveryPartner
	RoleVendor          = EarnerTypeVendor
	RoleService         = "service"
)

// AuthClaims are the claims the hosting platform issues. EarnerID and
// EarnerType are only set for earner tokens; admin and service tokens carry
// the role alone.
type AuthClaims struct {
	jwt.RegisteredClaims
	EarnerID   uint   `json:"earner_id,omitempty"`
	EarnerType string `json:"earner_type,omitempty"`
	Role       string `json:"role"`
}

// IsEarner reports whether the claims belong to an earner account.
func (c *AuthClaims) IsEarner() bool {
	return c.Role == RoleDeliveryPartner || c.Role == RoleVendor
}

// IsAdmin reports whether the claims belong to an administrator.
func (c *AuthClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
