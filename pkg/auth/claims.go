package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vantagefund/wallet-engine/pkg/enums"
)

// AccessTokenClaims is the verified identity the external auth system hands
// the engine: a user id and a role. Nothing else about the subject is trusted
// or stored here.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"uid"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}
