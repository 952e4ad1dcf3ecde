package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/auth"
	"github.com/propertilaw/propertilaw/internal/models"
	"github.com/propertilaw/propertilaw/internal/utils"
)

// PrincipalKey is the Locals key holding the authenticated principal.
const PrincipalKey = "principal"

// Claims is the JWT payload issued by the identity provider. UserType
// distinguishes firm users from client users.
type Claims struct {
	UserType string `json:"userType"`
	jwt.RegisteredClaims
}

// Authenticate verifies the bearer token, loads the user row and
// attaches a Principal to the request context. Inactive users are
// rejected even with a valid token.
func Authenticate(db *gorm.DB, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return utils.ErrorResponse(c, "Missing or malformed authorization header", fiber.StatusUnauthorized, "authentication")
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.ErrorResponse(c, "Invalid or expired token", fiber.StatusUnauthorized, "authentication")
		}

		principal, err := loadPrincipal(db, claims)
		if err != nil {
			return utils.ErrorResponse(c, "Invalid or expired token", fiber.StatusUnauthorized, "authentication")
		}

		c.Locals(PrincipalKey, principal)
		return c.Next()
	}
}

func loadPrincipal(db *gorm.DB, claims *Claims) (*auth.Principal, error) {
	switch claims.UserType {
	case auth.UserTypeClient:
		var user models.ClientUser
		if err := db.First(&user, "id = ?", claims.Subject).Error; err != nil {
			return nil, err
		}
		if !user.IsActive {
			return nil, errors.New("user is inactive")
		}
		return &auth.Principal{
			ID:       user.ID,
			Email:    user.Email,
			Role:     user.Role,
			UserType: auth.UserTypeClient,
			ClientID: user.ClientID,
		}, nil

	case auth.UserTypeFirm:
		var user models.FirmUser
		if err := db.First(&user, "id = ?", claims.Subject).Error; err != nil {
			return nil, err
		}
		if !user.IsActive {
			return nil, errors.New("user is inactive")
		}
		return &auth.Principal{
			ID:        user.ID,
			Email:     user.Email,
			Role:      user.Role,
			UserType:  auth.UserTypeFirm,
			LawFirmID: user.LawFirmID,
		}, nil

	default:
		return nil, errors.New("unknown user type")
	}
}

// GetPrincipal returns the principal attached by Authenticate, or nil
// when the route was reached without it.
func GetPrincipal(c *fiber.Ctx) *auth.Principal {
	p, _ := c.Locals(PrincipalKey).(*auth.Principal)
	return p
}

// RequireFirmUser rejects requests from client-side principals.
func RequireFirmUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p == nil || !p.IsFirm() {
			return utils.ForbiddenResponse(c, "Firm user access required")
		}
		return c.Next()
	}
}

// RequireClientUser rejects requests from firm-side principals.
func RequireClientUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p == nil || !p.IsClient() {
			return utils.ForbiddenResponse(c, "Client user access required")
		}
		return c.Next()
	}
}

// Authorize allows only principals holding one of the given roles.
func Authorize(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p == nil || !p.HasRole(roles...) {
			return utils.ForbiddenResponse(c, "Insufficient role")
		}
		return c.Next()
	}
}
