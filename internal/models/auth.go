package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles recognised by route guards.
type UserRole string

// Roles issued by the identity service.
const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleCoach      UserRole = "COACH"
	RoleAthlete    UserRole = "ATHLETE"
)

// JWTClaims is the verified payload of an access token.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}
